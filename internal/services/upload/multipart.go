package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/phambaophuc/meal-analyzer/internal/models"
)

const (
	// FieldName is fixed by the upstream contract.
	FieldName    = "image"
	fileBaseName = "photo"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildMultipart writes a form with exactly one file part.
func buildMultipart(asset models.ImageAsset) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	mediaType := asset.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	filename := fileBaseName + asset.Extension()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldName, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", mediaType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(asset.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return body.Bytes(), writer.FormDataContentType(), nil
}
