package geo

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"terradjunto/internal/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrMalformed         = errors.New("malformed file")
	ErrInvalidCSV        = errors.New("CSV inválido")
)

// Result is what an upload turns into before it becomes a dataset.
type Result struct {
	Type     string
	Features json.RawMessage // nil for metadata-only formats
	Active   bool
	Opaque   bool // stored without geometry until converted server-side
	Count    int  // features produced
	Skipped  int  // rows or placemarks without usable coordinates
}

// Ingest picks a parser from the lowercase file extension.
//
// KML support is Points only: each Placemark becomes one Point built from the
// first two numbers of its first <coordinates> element, so lines and polygons
// collapse to their first vertex.
func Ingest(filename string, data []byte) (Result, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".geojson", ".json":
		typ := models.DatasetGeoJSON
		if ext == ".json" {
			typ = models.DatasetJSON
		}
		return ingestGeoJSON(typ, data)
	case ".kml":
		fc, skipped, err := parseKML(data)
		if err != nil {
			return Result{Type: models.DatasetKML}, err
		}
		return collectionResult(models.DatasetKML, fc, skipped)
	case ".csv":
		fc, skipped, err := parseCSV(data)
		if err != nil {
			return Result{Type: models.DatasetCSV}, err
		}
		return collectionResult(models.DatasetCSV, fc, skipped)
	case ".zip", ".shp":
		return Result{Type: models.DatasetShapefile, Opaque: true}, nil
	case ".gpkg":
		return Result{Type: models.DatasetGeoPackage, Opaque: true}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func ingestGeoJSON(typ string, data []byte) (Result, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return Result{Type: typ}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	res := Result{Type: typ, Features: buf.Bytes(), Active: true}
	if fc, err := ParseFeatureCollection(res.Features); err == nil {
		res.Count = len(fc.Features)
	}
	return res, nil
}

func collectionResult(typ string, fc FeatureCollection, skipped int) (Result, error) {
	raw, err := json.Marshal(fc)
	if err != nil {
		return Result{Type: typ}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Result{Type: typ, Features: raw, Active: true, Count: len(fc.Features), Skipped: skipped}, nil
}

func parseKML(data []byte) (FeatureCollection, int, error) {
	fc := NewFeatureCollection()
	skipped := 0
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fc, skipped, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}

		name, coords, err := readPlacemark(dec)
		if err != nil {
			return fc, skipped, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		lng, lat, ok := firstPosition(coords)
		if !ok {
			skipped++
			continue
		}
		fc.Features = append(fc.Features, PointFeature(lng, lat, map[string]any{"name": name}))
	}
	return fc, skipped, nil
}

// readPlacemark consumes tokens up to the end of the current Placemark and
// returns the text of its first <name> and first <coordinates>.
func readPlacemark(dec *xml.Decoder) (name, coords string, err error) {
	var haveName, haveCoords bool
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return "", "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "name" && !haveName:
				if err := dec.DecodeElement(&name, &t); err != nil {
					return "", "", err
				}
				haveName = true
			case t.Name.Local == "coordinates" && !haveCoords:
				if err := dec.DecodeElement(&coords, &t); err != nil {
					return "", "", err
				}
				haveCoords = true
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return strings.TrimSpace(name), strings.TrimSpace(coords), nil
}

var commaSpace = regexp.MustCompile(`\s*,\s*`)

// firstPosition reads "lng,lat[,alt]" from the first tuple of a KML coordinates
// text. Tuples are separated by whitespace; commas may carry stray spaces.
func firstPosition(coords string) (lng, lat float64, ok bool) {
	tuples := strings.Fields(commaSpace.ReplaceAllString(coords, ","))
	if len(tuples) == 0 {
		return 0, 0, false
	}
	parts := strings.Split(tuples[0], ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	lng, err1 := strconv.ParseFloat(parts[0], 64)
	lat, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lng, lat, true
}

var (
	latHeader  = regexp.MustCompile(`(?i)lat`)
	lngHeader  = regexp.MustCompile(`(?i)lon|lng|long`)
	nameHeader = regexp.MustCompile(`(?i)name|nome|label`)
)

func findColumn(header []string, re *regexp.Regexp) int {
	for i, h := range header {
		if re.MatchString(h) {
			return i
		}
	}
	return -1
}

func parseCSV(data []byte) (FeatureCollection, int, error) {
	fc := NewFeatureCollection()
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return fc, 0, fmt.Errorf("%w: ficheiro vazio", ErrInvalidCSV)
	}
	if err != nil {
		return fc, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	latIdx := findColumn(header, latHeader)
	lngIdx := findColumn(header, lngHeader)
	nameIdx := findColumn(header, nameHeader)
	if latIdx < 0 || lngIdx < 0 {
		return fc, 0, fmt.Errorf("%w: colunas de latitude/longitude não encontradas", ErrInvalidCSV)
	}

	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fc, skipped, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(rec) <= max(latIdx, lngIdx) {
			skipped++
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(rec[latIdx]), 64)
		lng, err2 := strconv.ParseFloat(strings.TrimSpace(rec[lngIdx]), 64)
		if err1 != nil || err2 != nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(header))
		for i, h := range header {
			if i == latIdx || i == lngIdx || i >= len(rec) {
				continue
			}
			props[h] = rec[i]
		}
		if nameIdx >= 0 && nameIdx < len(rec) {
			props["name"] = rec[nameIdx]
		}
		fc.Features = append(fc.Features, PointFeature(lng, lat, props))
	}
	return fc, skipped, nil
}
