package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
)

// allowedClientContentTypes are the client-declared MIME types accepted for
// CSV uploads. Browsers disagree on what a .csv is, so the list is loose;
// the magic-byte check and the parser do the real gatekeeping.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
	"application/octet-stream": true,
}

// ValidateClientContentType checks the Content-Type header provided by the
// client. Media type parameters such as charset are ignored.
func ValidateClientContentType(contentType string) error {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !allowedClientContentTypes[mediaType] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for CSV upload", contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes checks the actual content signature and
// returns the detected type. The reader is rewound so the parser that follows
// sees the whole file.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detected := strings.ToLower(strings.Split(http.DetectContentType(buffer[:n]), ";")[0])

	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"application/octet-stream": true,
	}
	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Disallowed detected file content type", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type '%s' is not consistent with a CSV file", detected)
	}

	logger.L.Debug("File content type validated", "detectedContentType", detected)
	return detected, nil
}
