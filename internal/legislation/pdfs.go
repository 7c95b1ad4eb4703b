package legislation

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"terradjunto/internal/logger"
	"terradjunto/internal/models"
	"terradjunto/internal/records"
	"terradjunto/internal/storage"
)

// PDFs is the legacy legislation PDF uploader. Without an archiver only the
// metadata is kept.
type PDFs struct {
	*records.Collection[models.LegislationPDF]
	archive storage.Archiver
}

func NewPDFs(list *records.Collection[models.LegislationPDF], archive storage.Archiver) *PDFs {
	return &PDFs{Collection: list, archive: archive}
}

// Upload records a PDF and archives its bytes when possible. An archive
// failure is logged and the entry is kept without a URL.
func (p *PDFs) Upload(ctx context.Context, name, contentType string, data []byte) (models.LegislationPDF, error) {
	if name == "" {
		return models.LegislationPDF{}, fmt.Errorf("%w: name", records.ErrRequired)
	}
	if contentType == "" {
		contentType = "application/pdf"
	}
	rec := models.LegislationPDF{
		ID:          records.NewID(),
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}
	if p.archive != nil {
		obj, err := p.archive.Upload(ctx, storage.PrefixLegislation, bytes.NewReader(data), contentType, filepath.Ext(name))
		if err != nil {
			logger.L().Warn("pdf archive failed", "name", name, "err", err)
		} else {
			rec.ObjectKey, rec.URL = obj.Key, obj.URL
		}
	}
	return p.Create(ctx, rec), nil
}

// Delete drops the entry and its archived object.
func (p *PDFs) Delete(ctx context.Context, id string) bool {
	rec, ok := p.Get(ctx, id)
	if !ok {
		return false
	}
	if p.archive != nil && rec.ObjectKey != "" {
		if err := p.archive.Delete(ctx, rec.ObjectKey); err != nil {
			logger.L().Warn("pdf archive delete failed", "key", rec.ObjectKey, "err", err)
		}
	}
	return p.Remove(ctx, id)
}
