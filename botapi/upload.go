// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
)

// InputFile is a file parameter for media sends. Construct one with
// exactly one of the five constructors. References (FileID, FileURL)
// ride in the form payload like any scalar; content sources (FilePath,
// FileBytes, FileReader) switch the request to multipart.
type InputFile struct {
	fileID string
	url    string
	path   string
	data   []byte
	reader io.Reader
	name   string
}

// FileID reuses a file already stored on the server, from a previous
// upload or a received message. Sends instantly regardless of size.
func FileID(id string) InputFile {
	return InputFile{fileID: id}
}

// FileURL has the server fetch the file from a public URL.
func FileURL(u string) InputFile {
	return InputFile{url: u}
}

// FilePath uploads a local file. The upload filename is the path's
// base name.
func FilePath(path string) InputFile {
	return InputFile{path: path, name: filepath.Base(path)}
}

// FileBytes uploads in-memory content under the given filename.
func FileBytes(name string, data []byte) InputFile {
	return InputFile{data: data, name: name}
}

// FileReader uploads streamed content under the given filename. The
// reader is consumed by the send; an InputFile built from a reader is
// single-use.
func FileReader(name string, r io.Reader) InputFile {
	return InputFile{reader: r, name: name}
}

func (f InputFile) isZero() bool {
	return f.fileID == "" && f.url == "" && f.path == "" && f.data == nil && f.reader == nil
}

// needsUpload reports whether the file carries content that must
// travel as a multipart part.
func (f InputFile) needsUpload() bool {
	return f.path != "" || f.data != nil || f.reader != nil
}

// wireValue returns the form-field form of a reference InputFile.
func (f InputFile) wireValue() string {
	if f.fileID != "" {
		return f.fileID
	}
	return f.url
}

// open returns the content stream and upload filename.
func (f InputFile) open() (io.ReadCloser, string, error) {
	name := f.name
	if name == "" {
		name = "file"
	}
	switch {
	case f.path != "":
		file, err := os.Open(f.path)
		if err != nil {
			return nil, "", err
		}
		return file, name, nil
	case f.data != nil:
		return io.NopCloser(bytes.NewReader(f.data)), name, nil
	case f.reader != nil:
		return io.NopCloser(f.reader), name, nil
	}
	return nil, "", fmt.Errorf("no content to upload")
}

// filePart pairs a form field name with the file that fills it.
type filePart struct {
	field string
	file  InputFile
}

// buildMultipart assembles a multipart/form-data body carrying the
// scalar form values plus the file parts. Failures opening a file
// surface as *EncodingError: the request was never sent.
func buildMultipart(values url.Values, parts []filePart) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, fieldValues := range values {
		for _, value := range fieldValues {
			if err := writer.WriteField(key, value); err != nil {
				return nil, "", &EncodingError{Field: key, Reason: fmt.Sprintf("writing form field: %v", err)}
			}
		}
	}

	for _, part := range parts {
		content, name, err := part.file.open()
		if err != nil {
			return nil, "", &EncodingError{Field: part.field, Reason: fmt.Sprintf("opening upload: %v", err)}
		}
		formFile, err := writer.CreateFormFile(part.field, name)
		if err != nil {
			content.Close()
			return nil, "", &EncodingError{Field: part.field, Reason: fmt.Sprintf("creating form file: %v", err)}
		}
		if _, err := io.Copy(formFile, content); err != nil {
			content.Close()
			return nil, "", &EncodingError{Field: part.field, Reason: fmt.Sprintf("reading upload: %v", err)}
		}
		content.Close()
	}

	if err := writer.Close(); err != nil {
		return nil, "", &EncodingError{Field: "multipart", Reason: fmt.Sprintf("finalizing body: %v", err)}
	}
	return &buf, writer.FormDataContentType(), nil
}
