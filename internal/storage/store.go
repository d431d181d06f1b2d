// Package storage persists successful edit results to disk: one PNG plus a
// thumbnail per result, indexed by a single results.json manifest.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"autoedit/internal/common/fsutil"
	"autoedit/internal/imageutil"
	"autoedit/pkg/types"
)

const (
	indexFile = "results.json"
	// thumbMaxSide bounds the longest side of stored thumbnails.
	thumbMaxSide = 320
)

// Record is one persisted result in the index. Newest records come first.
type Record struct {
	ID                 string             `json:"id"`
	CreatedAt          time.Time          `json:"created_at"`
	UserBrief          string             `json:"user_brief"`
	AppliedPrompt      string             `json:"applied_prompt"`
	TranslationInsight []string           `json:"translation_insight,omitempty"`
	ImageFile          string             `json:"image_file"`
	ThumbFile          string             `json:"thumb_file"`
	DurationSeconds    float64            `json:"duration_seconds"`
	Steps              []types.StepResult `json:"steps,omitempty"`
}

// Store writes results under a single directory. Safe for use from the
// coordinator goroutine; it performs no locking of its own because the
// pipeline admits one request at a time.
type Store struct {
	dir   string
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// New opens (creating if needed) a result store rooted at dir.
func New(dir string, log zerolog.Logger) (*Store, error) {
	expanded, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(expanded); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{
		dir:   expanded,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Save persists one successful result: the full-size PNG, a thumbnail, and
// an index entry prepended to results.json. Implements the pipeline's
// result sink.
func (s *Store) Save(res types.EditResult, steps []types.StepResult, duration time.Duration) error {
	img, _, err := imageutil.Decode(res.OutputImage)
	if err != nil {
		return fmt.Errorf("decode result image: %w", err)
	}
	id := s.newID()

	imageFile := id + ".png"
	if err := fsutil.WriteFileAtomic(filepath.Join(s.dir, imageFile), res.OutputImage, 0o644); err != nil {
		return fmt.Errorf("write result image: %w", err)
	}

	thumb, err := imageutil.EncodePNG(imageutil.Thumbnail(img, thumbMaxSide))
	if err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	thumbFile := id + "_thumb.png"
	if err := fsutil.WriteFileAtomic(filepath.Join(s.dir, thumbFile), thumb, 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}

	rec := Record{
		ID:                 id,
		CreatedAt:          s.now().UTC(),
		UserBrief:          res.UserBrief,
		AppliedPrompt:      res.AppliedPrompt,
		TranslationInsight: res.TranslationInsight,
		ImageFile:          imageFile,
		ThumbFile:          thumbFile,
		DurationSeconds:    duration.Seconds(),
		Steps:              steps,
	}
	index := append([]Record{rec}, s.readIndex()...)
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(s.dir, indexFile), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// All returns every indexed record, newest first.
func (s *Store) All() []Record {
	return s.readIndex()
}

// ByID looks up a single record.
func (s *Store) ByID(id string) (Record, bool) {
	for _, rec := range s.readIndex() {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// ImagePath returns the absolute path of a record's full-size image.
func (s *Store) ImagePath(rec Record) string {
	return filepath.Join(s.dir, rec.ImageFile)
}

// ThumbPath returns the absolute path of a record's thumbnail.
func (s *Store) ThumbPath(rec Record) string {
	return filepath.Join(s.dir, rec.ThumbFile)
}

// readIndex loads results.json. A missing or corrupt index yields an empty
// slice so one bad write never bricks the store.
func (s *Store) readIndex() []Record {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("result index unreadable")
		}
		return nil
	}
	var index []Record
	if err := json.Unmarshal(data, &index); err != nil {
		s.log.Warn().Err(err).Msg("result index corrupt; starting fresh")
		return nil
	}
	return index
}
