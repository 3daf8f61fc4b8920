package app

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framecoach/internal/ai"
	"framecoach/internal/model"
)

type fakeEditStore struct {
	created []model.Edit
	cleared []string
	byHash  map[string][]model.Edit
}

func (f *fakeEditStore) Create(edit *model.Edit) error {
	f.created = append(f.created, *edit)
	return nil
}

func (f *fakeEditStore) ListByHash(contentHash string) ([]model.Edit, error) {
	return f.byHash[contentHash], nil
}

func (f *fakeEditStore) DeleteByHash(contentHash string) error {
	f.cleared = append(f.cleared, contentHash)
	return nil
}

type fakeRevisionStore struct {
	files map[string][]byte
	saved []string
}

func (f *fakeRevisionStore) SaveRevision(contentHash, title string, data []byte) (string, error) {
	path := "store/" + contentHash + "/" + title + ".jpg"
	f.saved = append(f.saved, title)
	return path, nil
}

func (f *fakeRevisionStore) Read(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

type fakeEditor struct {
	result *ai.EditResult
	err    error
	calls  int
}

func (f *fakeEditor) EditImage(
	ctx context.Context,
	imageData []byte,
	imageMIMEType, instruction, systemInstruction string,
) (*ai.EditResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func editTestSetup(t *testing.T) (*fakeAnalysisStore, *fakeRevisionStore, string) {
	t.Helper()
	data := testPhotoBytes(t)
	hash := ContentHash(data)
	path := "store/" + hash + "/original.jpg"

	analyses := &fakeAnalysisStore{byHash: map[string]*model.Analysis{
		hash: {
			ContentHash: hash,
			Critique:    "The shadows are crushed.",
			ImagePath:   path,
		},
	}}
	files := &fakeRevisionStore{files: map[string][]byte{path: data}}
	return analyses, files, hash
}

func TestEditPhotoNotFound(t *testing.T) {
	analyses := &fakeAnalysisStore{byHash: map[string]*model.Analysis{}}
	svc := NewEditService(analyses, &fakeEditStore{}, nil, &fakeRevisionStore{})

	_, err := svc.EditPhoto(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrAnalysisNotFound)

	_, err = svc.EditPhoto(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEditPhotoOriginalUnavailable(t *testing.T) {
	analyses := &fakeAnalysisStore{byHash: map[string]*model.Analysis{
		"abc": {ContentHash: "abc", Critique: "fine"},
	}}
	svc := NewEditService(analyses, &fakeEditStore{}, nil, &fakeRevisionStore{})

	_, err := svc.EditPhoto(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrOriginalUnavailable)
}

func TestEditPhotoLocalVariantsOnly(t *testing.T) {
	analyses, files, hash := editTestSetup(t)
	edits := &fakeEditStore{}
	svc := NewEditService(analyses, edits, nil, files)

	result, err := svc.EditPhoto(context.Background(), hash)
	require.NoError(t, err)

	require.Len(t, result.Revisions, 3)
	titles := []string{result.Revisions[0].Title, result.Revisions[1].Title, result.Revisions[2].Title}
	assert.Equal(t, []string{"Brightness Boost", "Saturation Boost", "Sharpened"}, titles)

	for _, revision := range result.Revisions {
		assert.NotEmpty(t, revision.OutputPath)
		assert.Equal(t, revision.Metrics.After.Brightness-revision.Metrics.Before.Brightness,
			revision.Metrics.Delta.Brightness)
	}

	// Brightness boost must actually raise measured brightness.
	assert.Greater(t, result.Revisions[0].Metrics.Delta.Brightness, 0.0)

	assert.Equal(t, []string{hash}, edits.cleared)
	assert.Len(t, edits.created, 3)
}

func TestEditPhotoWithGenerativeEdit(t *testing.T) {
	analyses, files, hash := editTestSetup(t)

	edited := imaging.New(32, 32, color.NRGBA{R: 220, G: 120, B: 70, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, edited, imaging.JPEG))

	editor := &fakeEditor{result: &ai.EditResult{
		ImageData: buf.Bytes(),
		MIMEType:  "image/jpeg",
		Text:      "Lifted the shadows and warmed the tones.",
	}}
	edits := &fakeEditStore{}
	svc := NewEditService(analyses, edits, editor, files)

	result, err := svc.EditPhoto(context.Background(), hash)
	require.NoError(t, err)

	require.Len(t, result.Revisions, 4)
	assert.Equal(t, "AI Enhanced", result.Revisions[0].Title)
	assert.Equal(t, "Lifted the shadows and warmed the tones.", result.Revisions[0].Description)
	assert.Equal(t, 1, editor.calls)
	assert.Len(t, edits.created, 4)
}

func TestEditPhotoEditorFailureFallsBack(t *testing.T) {
	analyses, files, hash := editTestSetup(t)
	editor := &fakeEditor{err: errors.New("model overloaded")}
	svc := NewEditService(analyses, &fakeEditStore{}, editor, files)

	result, err := svc.EditPhoto(context.Background(), hash)
	require.NoError(t, err)

	assert.Len(t, result.Revisions, 3)
	assert.Equal(t, 1, editor.calls)
}

func TestEditHistory(t *testing.T) {
	edits := &fakeEditStore{byHash: map[string][]model.Edit{
		"abc": {{
			ContentHash: "abc",
			Title:       "Sharpened",
			OutputPath:  "store/abc/sharpened.jpg",
			MetricsJSON: `{"delta":{"sharpness":12.5}}`,
		}},
	}}
	svc := NewEditService(&fakeAnalysisStore{}, edits, nil, &fakeRevisionStore{})

	_, err := svc.EditHistory("")
	assert.ErrorIs(t, err, ErrInvalidInput)

	revisions, err := svc.EditHistory("abc")
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.Equal(t, "Sharpened", revisions[0].Title)
	assert.InDelta(t, 12.5, revisions[0].Metrics.Delta.Sharpness, 1e-9)
}
