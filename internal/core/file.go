package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxFileSize is the selection size cap when none is configured (25MB).
const DefaultMaxFileSize int64 = 25 * 1024 * 1024

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedFile = errors.New("only CSV or XLSX files are allowed")
	ErrUnreadableFile  = errors.New("file could not be read")
	ErrEmptyFile       = errors.New("empty file")
)

var fileErrors = []error{ErrFileTooLarge, ErrUnsupportedFile, ErrUnreadableFile, ErrEmptyFile}

// FileKind is the tabular format of a selected file.
type FileKind string

const (
	KindCSV  FileKind = "csv"
	KindXLSX FileKind = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileInfo describes a selected file for display. It is never sent to the
// service.
type FileInfo struct {
	Kind    FileKind `json:"kind"`
	Size    int64    `json:"size"`
	Sheets  []string `json:"sheets,omitempty"`
	Headers []string `json:"headers,omitempty"`
	Rows    int      `json:"rows"` // data rows, header excluded
}

// SelectedFile is the one file a session submits.
type SelectedFile struct {
	Name        string
	ContentType string
	Data        []byte
	Info        FileInfo
}

// NewSelectedFile validates name and contents and inspects the file.
// maxSize <= 0 uses DefaultMaxFileSize.
func NewSelectedFile(name string, data []byte, maxSize int64) (*SelectedFile, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	name = filepath.Base(strings.TrimSpace(name))
	kind, err := kindFromName(name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), maxSize)
	}

	if err := checkMagicBytes(kind, data); err != nil {
		return nil, err
	}

	info, err := Inspect(kind, data)
	if err != nil {
		return nil, err
	}

	contentType := "text/csv"
	if kind == KindXLSX {
		contentType = xlsxContentType
	}

	return &SelectedFile{
		Name:        name,
		ContentType: contentType,
		Data:        data,
		Info:        info,
	}, nil
}

func kindFromName(name string) (FileKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return KindCSV, nil
	case ".xlsx":
		return KindXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, name)
	}
}

// checkMagicBytes makes sure the contents look like the extension claims.
func checkMagicBytes(kind FileKind, data []byte) error {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	detected := strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])

	switch kind {
	case KindXLSX:
		if detected != "application/zip" && !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
			return fmt.Errorf("%w: detected %s, want a zip workbook", ErrUnreadableFile, detected)
		}
	case KindCSV:
		if !strings.HasPrefix(detected, "text/") && detected != "application/octet-stream" {
			return fmt.Errorf("%w: detected %s, want text", ErrUnreadableFile, detected)
		}
	}
	return nil
}

// Inspect reads enough of the file to describe it.
func Inspect(kind FileKind, data []byte) (FileInfo, error) {
	info := FileInfo{Kind: kind, Size: int64(len(data))}

	switch kind {
	case KindXLSX:
		return inspectXLSX(info, data)
	default:
		return inspectCSV(info, data)
	}
}

func inspectCSV(info FileInfo, data []byte) (FileInfo, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return FileInfo{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		if info.Headers == nil {
			info.Headers = trimAll(record)
			continue
		}
		info.Rows++
	}
	return info, nil
}

func inspectXLSX(info FileInfo, data []byte) (FileInfo, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	info.Sheets = f.GetSheetList()
	if len(info.Sheets) == 0 {
		return info, nil
	}

	rows, err := f.GetRows(info.Sheets[0])
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if len(rows) > 0 {
		info.Headers = trimAll(rows[0])
		info.Rows = len(rows) - 1
	}
	return info, nil
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
