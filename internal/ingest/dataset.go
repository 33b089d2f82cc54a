package ingest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nzambello/plone-map/internal/model"
)

// ErrDatasetNotFound is returned by LoadDataset when the file does not exist.
var ErrDatasetNotFound = eris.New("dataset not found")

// LoadDataset reads a JSON array of members.
func LoadDataset(path string) ([]model.Member, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrDatasetNotFound, "ingest: load %s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}

	var members []model.Member
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, eris.Wrapf(err, "ingest: decode %s", path)
	}
	if members == nil {
		members = []model.Member{}
	}
	zap.L().Debug("ingest: dataset loaded", zap.String("path", path), zap.Int("members", len(members)))
	return members, nil
}

// SaveDataset writes members as a JSON array. The file is written next to
// the destination and renamed into place, so readers never see a partial
// dataset.
func SaveDataset(path string, members []model.Member) error {
	if members == nil {
		members = []model.Member{}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return eris.Wrap(err, "ingest: encode dataset")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "ingest: create temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "ingest: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "ingest: close temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return eris.Wrapf(err, "ingest: rename to %s", path)
	}
	return nil
}

// SamePath reports whether a and b name the same file.
func SamePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
