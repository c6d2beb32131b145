// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfmetadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/files-processor/internal/grobid"
	"github.com/pdiddy/files-processor/internal/mining"
	"github.com/pdiddy/files-processor/internal/processor"
	"github.com/pdiddy/files-processor/pkg/types"
)

// fakeExtractor returns a canned document and records what it read.
type fakeExtractor struct {
	doc      types.ExtractedDocument
	err      error
	calls    int
	gotBytes string
	gotName  string
}

func (f *fakeExtractor) Extract(_ context.Context, pdf io.Reader, filename string) (types.ExtractedDocument, error) {
	f.calls++
	data, _ := io.ReadAll(pdf)
	f.gotBytes = string(data)
	f.gotName = filename
	return f.doc, f.err
}

type fakeText struct {
	text    string
	err     error
	gotPath string
	gotFmt  string
}

func (f *fakeText) Extract(path, format string) (string, error) {
	f.gotPath, f.gotFmt = path, format
	return f.text, f.err
}

// trackingOpener counts opens and closes of the PDF.
type trackingOpener struct {
	content string
	opened  int
	closed  int
}

type trackingReader struct {
	io.Reader
	o *trackingOpener
}

func (r *trackingReader) Close() error {
	r.o.closed++
	return nil
}

func (o *trackingOpener) Open(*types.ObjectVersion) (io.ReadCloser, error) {
	o.opened++
	return &trackingReader{Reader: bytes.NewReader([]byte(o.content)), o: o}, nil
}

func pdfFile(o processor.Opener) processor.File {
	return processor.NewFile(&types.ObjectVersion{
		VersionID: "2b9f1c1e-0000-4000-8000-000000000001",
		Key:       "deposits/paper.pdf",
		URI:       "/data/paper.pdf",
		MimeType:  types.MimePDF,
	}, o)
}

var sampleDoc = types.ExtractedDocument{
	Title:    "T",
	Abstract: "A",
	Keywords: []types.Keyword{{Value: "k1"}, {Value: "k2"}},
	Authors:  []types.Author{{Name: "N", Affiliations: []types.Affiliation{{Value: "Aff"}}}},
}

func TestCanProcess(t *testing.T) {
	p := New(nil, nil, nil, nil)
	tests := []struct {
		mime string
		want bool
	}{
		{"application/pdf", true},
		{"application/x-pdf", false},
		{"Application/PDF", false},
		{"application/pdf; charset=binary", false},
		{"", false},
		{"text/plain", false},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CanProcess(tt.mime))
		})
	}
}

func TestProcessGrobidOnly(t *testing.T) {
	docs := &fakeExtractor{doc: sampleDoc}
	opener := &trackingOpener{content: "%PDF-1.4 data"}
	p := New(docs, &fakeText{}, nil, nil)

	rec, err := p.Process(context.Background(), pdfFile(opener), types.ProcessorSetting{Grobid: true})
	require.NoError(t, err)

	assert.Equal(t, &types.MetadataRecord{
		Title:       "T",
		Description: "A",
		Keywords:    []string{"k1", "k2"},
		Creators:    []types.Creator{{Name: "N", Affiliation: "Aff"}},
	}, rec)
	assert.Equal(t, "%PDF-1.4 data", docs.gotBytes)
	assert.Equal(t, "paper.pdf", docs.gotName)
	assert.Equal(t, 1, opener.opened)
	assert.Equal(t, 1, opener.closed)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","description":"A","keywords":["k1","k2"],"creators":[{"name":"N","affiliation":"Aff"}],"project_info":null}`, string(out))
}

func TestProcessAuthorWithoutAffiliation(t *testing.T) {
	docs := &fakeExtractor{doc: types.ExtractedDocument{
		Authors: []types.Author{{Name: "Solo", Affiliations: []types.Affiliation{}}},
	}}
	p := New(docs, nil, nil, nil)

	rec, err := p.Process(context.Background(), pdfFile(&trackingOpener{}), types.ProcessorSetting{Grobid: true})
	require.NoError(t, err)
	assert.Equal(t, []types.Creator{{Name: "Solo", Affiliation: ""}}, rec.Creators)
	assert.Nil(t, rec.Keywords)
}

func TestProcessNoStages(t *testing.T) {
	docs := &fakeExtractor{doc: sampleDoc}
	opener := &trackingOpener{}
	p := New(docs, &fakeText{}, nil, nil)

	rec, err := p.Process(context.Background(), pdfFile(opener), types.ProcessorSetting{Grobid: false})
	require.NoError(t, err)
	assert.Equal(t, &types.MetadataRecord{}, rec)
	assert.Equal(t, 0, docs.calls)
	assert.Equal(t, 0, opener.opened)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"","description":"","keywords":null,"creators":null,"project_info":null}`, string(out))
}

func TestProcessGrobidFailure(t *testing.T) {
	var logs bytes.Buffer
	cause := fmt.Errorf("%w: boom", grobid.ErrRequest)
	docs := &fakeExtractor{err: cause}
	opener := &trackingOpener{content: "x"}
	p := New(docs, nil, nil, slog.New(slog.NewTextHandler(&logs, nil)))

	rec, err := p.Process(context.Background(), pdfFile(opener), types.ProcessorSetting{Grobid: true})
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionService)
	assert.ErrorIs(t, err, grobid.ErrRequest)
	assert.False(t, processor.IsAbort(err))
	assert.Equal(t, 1, opener.closed, "file must be released on failure")
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "version_id=2b9f1c1e-0000-4000-8000-000000000001")
}

func TestProcessMiningForm(t *testing.T) {
	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		fmt.Fprint(w, `{"projects":[{"acronym":"P1"}]}`)
	}))
	defer ts.Close()

	text := &fakeText{text: "full text of the paper"}
	p := New(&fakeExtractor{doc: sampleDoc}, text, mining.NewClient(types.MiningConfig{URL: ts.URL}), nil)

	setting := types.ProcessorSetting{
		Grobid:   true,
		OpenAIRE: &types.OpenAIRESetting{DataCitations: true, Classification: false},
	}
	rec, err := p.Process(context.Background(), pdfFile(&trackingOpener{}), setting)
	require.NoError(t, err)

	assert.Equal(t, url.Values{
		"document":       {"full text of the paper"},
		"datacitations":  {"on"},
		"classification": {"off"},
	}, got)
	assert.Equal(t, "/data/paper.pdf", text.gotPath)
	assert.Equal(t, "pdf", text.gotFmt)
	assert.JSONEq(t, `{"projects":[{"acronym":"P1"}]}`, string(rec.ProjectInfo))
	assert.Equal(t, "T", rec.Title)
}

func TestProcessMiningUnavailable(t *testing.T) {
	var logs bytes.Buffer
	miner := mining.NewClient(types.MiningConfig{
		URL:        "http://127.0.0.1:1/analyze",
		HTTPConfig: types.HTTPConfig{Timeout: time.Second},
	})
	p := New(&fakeExtractor{doc: sampleDoc}, &fakeText{text: "t"}, miner, slog.New(slog.NewTextHandler(&logs, nil)))

	rec, err := p.Process(context.Background(), pdfFile(&trackingOpener{}), types.ProcessorSetting{
		OpenAIRE: &types.OpenAIRESetting{},
	})
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.True(t, processor.IsAbort(err))
	assert.ErrorIs(t, err, ErrMiningUnavailable)
	assert.ErrorIs(t, err, mining.ErrUnavailable)
	assert.Equal(t, 1, strings.Count(err.Error(), "mining service unavailable"))
	assert.Contains(t, logs.String(), "cannot connect to mining service")
}

func TestProcessMiningCancelled(t *testing.T) {
	var logs bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	miner := mining.NewClient(types.MiningConfig{URL: "http://127.0.0.1:1/analyze"})
	p := New(nil, &fakeText{text: "t"}, miner, slog.New(slog.NewTextHandler(&logs, nil)))

	rec, err := p.Process(ctx, pdfFile(&trackingOpener{}), types.ProcessorSetting{
		OpenAIRE: &types.OpenAIRESetting{},
	})
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, processor.IsAbort(err))
	assert.NotContains(t, logs.String(), "cannot connect to mining service")
}

// fakeMiner returns a canned answer.
type fakeMiner struct {
	info types.ProjectInfo
	err  error
}

func (f *fakeMiner) Analyze(context.Context, string, types.OpenAIRESetting) (types.ProjectInfo, error) {
	return f.info, f.err
}

func TestProcessMiningRecoverableFailures(t *testing.T) {
	tests := []struct {
		name  string
		text  *fakeText
		miner *fakeMiner
	}{
		{"text extraction fails", &fakeText{err: errors.New("encrypted PDF")}, &fakeMiner{}},
		{"mining answers garbage", &fakeText{text: "t"}, &fakeMiner{err: errors.New("mining service returned invalid JSON")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(nil, tt.text, tt.miner, nil)
			rec, err := p.Process(context.Background(), pdfFile(&trackingOpener{}), types.ProcessorSetting{
				OpenAIRE: &types.OpenAIRESetting{},
			})
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.False(t, processor.IsAbort(err))
		})
	}
}

func TestProcessMiningNotConfigured(t *testing.T) {
	p := New(nil, nil, nil, nil)
	_, err := p.Process(context.Background(), pdfFile(&trackingOpener{}), types.ProcessorSetting{
		OpenAIRE: &types.OpenAIRESetting{},
	})
	assert.Error(t, err)
}

func TestProcessOpenFailure(t *testing.T) {
	p := New(&fakeExtractor{}, nil, nil, nil)
	_, err := p.Process(context.Background(), processor.NewFile(&types.ObjectVersion{VersionID: "v"}, nil), types.ProcessorSetting{Grobid: true})
	assert.Error(t, err)
}

// TestDispatchThroughRegistry runs the processor behind the registry with a
// GROBID stub, covering the fall-through and abort paths end to end.
func TestDispatchThroughRegistry(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644))
	v := &types.ObjectVersion{VersionID: "v-9", Key: "paper.pdf", URI: pdfPath, MimeType: types.MimePDF}

	grobidDown := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer grobidDown.Close()

	failing := New(grobid.NewClient(types.GrobidConfig{URL: grobidDown.URL}), nil, nil, nil)
	working := New(&fakeExtractor{doc: sampleDoc}, nil, nil, nil)

	reg := processor.NewRegistry(nil)
	require.NoError(t, reg.Register(failing))
	require.NoError(t, reg.Register(working))

	rec, err := reg.Dispatch(context.Background(), v.MimeType, processor.NewFile(v, fileOpener{}), types.ProcessorSetting{Grobid: true})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "T", rec.Title)

	rec, err = reg.Dispatch(context.Background(), "image/png", processor.NewFile(v, fileOpener{}), types.ProcessorSetting{Grobid: true})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

type fileOpener struct{}

func (fileOpener) Open(v *types.ObjectVersion) (io.ReadCloser, error) {
	return os.Open(v.URI)
}
