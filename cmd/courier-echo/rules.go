// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/courier-foundation/courier/botapi"
	"github.com/courier-foundation/courier/markup"
)

// ruleFile is the on-disk shape of the reply rules. The file is JSONC:
// JSON extended with // comments, /* block comments */, and trailing
// commas, converted to standard JSON before parsing.
//
//	{
//	  "rules": [
//	    // First match wins; order matters.
//	    {"prefix": "/start", "reply": "Hello, {{first_name}}!"},
//	    {"contains": "status", "reply": "All **good**.", "markdown": true},
//	    {"regexp": "^(ping|PING)$", "reply": "pong"},
//	  ],
//	  "fallback": "I only understand /start, status, and ping.",
//	}
type ruleFile struct {
	Rules    []ruleSpec `json:"rules"`
	Fallback string     `json:"fallback"`
}

// ruleSpec is one rule as written in the file. Exactly one of Prefix,
// Contains, and Regexp selects the messages the rule applies to.
type ruleSpec struct {
	Prefix   string `json:"prefix"`
	Contains string `json:"contains"`
	Regexp   string `json:"regexp"`

	// Reply is the response template. Placeholders {{text}},
	// {{first_name}}, {{last_name}}, {{username}}, and {{chat_id}}
	// expand from the matched message.
	Reply string `json:"reply"`

	// Markdown renders the reply template to Bot API HTML at load
	// time; placeholder values are then HTML-escaped at expansion time
	// so a user-controlled name cannot inject markup.
	Markdown bool `json:"markdown"`
}

// rule is one compiled rule.
type rule struct {
	// name identifies the rule in logs: "prefix:/start".
	name  string
	match func(text string) bool

	// reply is the response template, already rendered to HTML when
	// html is set.
	reply string
	html  bool
}

// ruleSet is the compiled rule file. Rules apply in file order; the
// first match wins. The fallback, when present, answers messages no
// rule matched. Without a fallback, unmatched messages stay silent.
type ruleSet struct {
	rules    []rule
	fallback string
}

// loadRules reads and compiles a JSONC rule file.
func loadRules(path string) (*ruleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := parseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

func parseRules(data []byte) (*ruleSet, error) {
	var file ruleFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if len(file.Rules) == 0 && file.Fallback == "" {
		return nil, fmt.Errorf("rule file defines no rules and no fallback")
	}

	set := &ruleSet{fallback: file.Fallback}
	for index, spec := range file.Rules {
		compiled, err := compileRule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", index+1, err)
		}
		set.rules = append(set.rules, compiled)
	}
	return set, nil
}

func compileRule(spec ruleSpec) (rule, error) {
	matchers := 0
	for _, pattern := range []string{spec.Prefix, spec.Contains, spec.Regexp} {
		if pattern != "" {
			matchers++
		}
	}
	if matchers != 1 {
		return rule{}, fmt.Errorf("exactly one of prefix, contains, regexp is required")
	}
	if spec.Reply == "" {
		return rule{}, fmt.Errorf("reply is required")
	}

	reply := spec.Reply
	if spec.Markdown {
		rendered, err := markup.ToHTML(spec.Reply)
		if err != nil {
			return rule{}, fmt.Errorf("rendering reply: %w", err)
		}
		reply = rendered
	}

	switch {
	case spec.Prefix != "":
		prefix := spec.Prefix
		return rule{
			name:  "prefix:" + prefix,
			match: func(text string) bool { return strings.HasPrefix(text, prefix) },
			reply: reply,
			html:  spec.Markdown,
		}, nil
	case spec.Contains != "":
		substring := spec.Contains
		return rule{
			name:  "contains:" + substring,
			match: func(text string) bool { return strings.Contains(text, substring) },
			reply: reply,
			html:  spec.Markdown,
		}, nil
	default:
		pattern, err := regexp.Compile(spec.Regexp)
		if err != nil {
			return rule{}, fmt.Errorf("compiling regexp: %w", err)
		}
		return rule{
			name:  "regexp:" + spec.Regexp,
			match: pattern.MatchString,
			reply: reply,
			html:  spec.Markdown,
		}, nil
	}
}

// replyTo finds the response for a message. The returned parse mode is
// HTML for Markdown-rendered rules and empty for plain ones. ok is
// false when the message carries no text or nothing matched and there
// is no fallback.
func (s *ruleSet) replyTo(message *botapi.Message) (text string, mode botapi.ParseMode, matched string, ok bool) {
	if message.Text == nil {
		return "", "", "", false
	}
	for _, r := range s.rules {
		if r.match(*message.Text) {
			if r.html {
				mode = botapi.ParseModeHTML
			}
			return expandTemplate(r.reply, r.html, message), mode, r.name, true
		}
	}
	if s.fallback != "" {
		return expandTemplate(s.fallback, false, message), "", "fallback", true
	}
	return "", "", "", false
}

// expandTemplate fills a reply template's placeholders from the
// message. When the template is HTML, values are escaped so message
// content cannot smuggle markup into the reply.
func expandTemplate(template string, html bool, message *botapi.Message) string {
	value := func(s string) string {
		if html {
			return markup.Escape(s)
		}
		return s
	}

	var text, firstName, lastName, username string
	if message.Text != nil {
		text = *message.Text
	}
	if message.From != nil {
		firstName = message.From.FirstName
		if message.From.LastName != nil {
			lastName = *message.From.LastName
		}
		if message.From.Username != nil {
			username = *message.From.Username
		}
	}

	return strings.NewReplacer(
		"{{text}}", value(text),
		"{{first_name}}", value(firstName),
		"{{last_name}}", value(lastName),
		"{{username}}", value(username),
		"{{chat_id}}", strconv.FormatInt(message.Chat.ID, 10),
	).Replace(template)
}
