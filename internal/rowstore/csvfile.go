package rowstore

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"catalogdesk-backend/internal/catalog"
)

func decode(r io.Reader) (catalog.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return catalog.Dataset{Headers: []string{}, Rows: []catalog.Record{}}, nil
	}
	if err != nil {
		return catalog.Dataset{}, fmt.Errorf("read header: %w", err)
	}

	ds := catalog.Dataset{
		Headers: header,
		Rows:    []catalog.Record{},
	}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return catalog.Dataset{}, fmt.Errorf("read row %d: %w", len(ds.Rows), err)
		}
		if len(fields) == 1 && fields[0] == "" {
			continue
		}
		rec := make(catalog.Record, len(header))
		for i, h := range header {
			if i < len(fields) {
				rec[h] = fields[i]
			} else {
				rec[h] = ""
			}
		}
		ds.Rows = append(ds.Rows, rec)
	}
	return ds, nil
}

// encode writes headers verbatim, a byte order mark carried by the first
// header is written back as is.
func encode(ds catalog.Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	err := writer.Write(ds.Headers)
	if err != nil {
		return nil, err
	}
	fields := make([]string, len(ds.Headers))
	for _, row := range ds.Rows {
		for i, h := range ds.Headers {
			fields[i] = row[h]
		}
		err = writer.Write(fields)
		if err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
