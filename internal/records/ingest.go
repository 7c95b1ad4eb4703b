package records

import (
	"bytes"
	"context"
	"mime"
	"path/filepath"
	"strings"

	"terradjunto/internal/geo"
	"terradjunto/internal/logger"
	"terradjunto/internal/metrics"
	"terradjunto/internal/models"
	"terradjunto/internal/storage"
)

// Upload is a dataset file as received from an admin.
type Upload struct {
	Filename string
	Name     string // defaults to the file name without extension
	Scope    string // defaults to header
	Data     []byte
}

// Ingest parses an upload into a dataset and stores it. Opaque formats are
// archived when archive is set and kept inactive without geometry.
func (s *Datasets) Ingest(ctx context.Context, archive storage.Archiver, up Upload) (models.Dataset, geo.Result, error) {
	res, err := geo.Ingest(up.Filename, up.Data)
	if err != nil {
		metrics.DatasetIngestTotal.WithLabelValues(formatLabel(res.Type), "error").Inc()
		return models.Dataset{}, res, err
	}

	base := filepath.Base(up.Filename)
	name := strings.TrimSpace(up.Name)
	if name == "" {
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	d := models.Dataset{
		Name:     name,
		Type:     res.Type,
		Active:   res.Active,
		Scope:    up.Scope,
		Features: res.Features,
		Meta:     models.DatasetMeta{Size: int64(len(up.Data)), OriginalName: base},
	}

	// rejected uploads must not reach the archive
	if err := validateDataset(d); err != nil {
		metrics.DatasetIngestTotal.WithLabelValues(res.Type, "error").Inc()
		return d, res, err
	}

	if res.Opaque && archive != nil {
		ext := filepath.Ext(base)
		obj, err := archive.Upload(ctx, storage.PrefixDatasets, bytes.NewReader(up.Data), mime.TypeByExtension(ext), ext)
		if err != nil {
			logger.L().Warn("dataset archive failed", "file", base, "err", err)
		} else {
			d.Meta.ObjectKey = obj.Key
		}
	}

	d, err = s.Add(ctx, d)
	if err != nil {
		metrics.DatasetIngestTotal.WithLabelValues(res.Type, "error").Inc()
		return d, res, err
	}

	outcome := "ok"
	if res.Opaque {
		outcome = "metadata_only"
	}
	metrics.DatasetIngestTotal.WithLabelValues(res.Type, outcome).Inc()
	logger.L().Info("dataset ingested", "id", d.ID, "type", d.Type, "features", res.Count, "skipped", res.Skipped)
	return d, res, nil
}

// Delete removes a dataset along with its archived source file.
func (s *Datasets) Delete(ctx context.Context, archive storage.Archiver, id string) bool {
	d, ok := s.Get(ctx, id)
	if !ok {
		return false
	}
	if archive != nil && d.Meta.ObjectKey != "" {
		if err := archive.Delete(ctx, d.Meta.ObjectKey); err != nil {
			logger.L().Warn("dataset archive delete failed", "key", d.Meta.ObjectKey, "err", err)
		}
	}
	return s.Remove(ctx, id)
}

func formatLabel(typ string) string {
	if typ == "" {
		return "unknown"
	}
	return typ
}
