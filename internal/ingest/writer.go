package ingest

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/robotu/molkit/internal/domain/molecule"
	"github.com/robotu/molkit/pkg/errors"
)

// WriteRecords writes one JSON record per line to path.  The file is staged
// next to the target and renamed into place, so a crashed run never leaves a
// truncated index behind.
func WriteRecords(path string, records []*molecule.Record) error {
	if len(records) == 0 {
		return errors.New(errors.ErrCodeIngestWriteFailed, "no records to write")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIngestWriteFailed, "stage index file")
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		line, err := molecule.EncodeRecord(rec)
		if err != nil {
			tmp.Close()
			return errors.Wrap(err, errors.ErrCodeIngestWriteFailed, "encode record")
		}
		if _, err := w.Write(line); err != nil {
			tmp.Close()
			return errors.Wrap(err, errors.ErrCodeIngestWriteFailed, "write record")
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return errors.Wrap(err, errors.ErrCodeIngestWriteFailed, "write record")
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeIngestWriteFailed, "flush index file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeIngestWriteFailed, "close index file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, errors.ErrCodeIngestWriteFailed, "publish index file").WithDetail(path)
	}
	return nil
}
