// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfmetadata implements the PDF processor: structured extraction
// through GROBID, optional project mining through OpenAIRE, and mapping of
// both onto a MetadataRecord.
package pdfmetadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/pdiddy/files-processor/internal/mining"
	"github.com/pdiddy/files-processor/internal/processor"
	"github.com/pdiddy/files-processor/internal/textextract"
	"github.com/pdiddy/files-processor/pkg/types"
)

// Name identifies the processor in logs.
const Name = "pdfmetadata"

var (
	// ErrExtractionService reports a failed GROBID request. The dispatcher
	// treats it like any processor failure and moves on.
	ErrExtractionService = errors.New("structured extraction service error")

	// ErrMiningUnavailable reports that the mining service could not be
	// reached. It is returned wrapped in a processor.AbortError.
	ErrMiningUnavailable = errors.New("project mining stage")
)

// DocumentExtractor turns PDF bytes into an ExtractedDocument.
// *grobid.Client implements it.
type DocumentExtractor interface {
	Extract(ctx context.Context, pdf io.Reader, filename string) (types.ExtractedDocument, error)
}

// ProjectMiner infers project information from document text.
// *mining.Client implements it.
type ProjectMiner interface {
	Analyze(ctx context.Context, text string, setting types.OpenAIRESetting) (types.ProjectInfo, error)
}

// Processor extracts bibliographic metadata from PDFs.
type Processor struct {
	docs   DocumentExtractor
	text   textextract.Extractor
	miner  ProjectMiner
	logger *slog.Logger
}

// New wires a processor. A nil logger discards output.
func New(docs DocumentExtractor, text textextract.Extractor, miner ProjectMiner, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{docs: docs, text: text, miner: miner, logger: logger}
}

// Name implements processor.Processor.
func (p *Processor) Name() string { return Name }

// CanProcess accepts exactly "application/pdf". Content and file extension
// are not inspected.
func (p *Processor) CanProcess(mimeType string) bool {
	return mimeType == types.MimePDF
}

// Process runs the enabled stages and assembles the record. With
// setting.Grobid false the document fields stay empty; with
// setting.OpenAIRE nil the project info stays null.
func (p *Processor) Process(ctx context.Context, file processor.File, setting types.ProcessorSetting) (*types.MetadataRecord, error) {
	var doc types.ExtractedDocument
	if setting.Grobid {
		d, err := p.extractDocument(ctx, file)
		if err != nil {
			return nil, err
		}
		doc = d
	}

	var info types.ProjectInfo
	if setting.OpenAIRE != nil {
		pi, err := p.mineProjects(ctx, file, *setting.OpenAIRE)
		if err != nil {
			return nil, err
		}
		info = pi
	}

	return types.NewMetadataRecord(doc, info), nil
}

func (p *Processor) extractDocument(ctx context.Context, file processor.File) (types.ExtractedDocument, error) {
	if p.docs == nil {
		return types.ExtractedDocument{}, fmt.Errorf("%w: no extraction client configured", ErrExtractionService)
	}

	rc, err := file.Open()
	if err != nil {
		return types.ExtractedDocument{}, err
	}
	defer rc.Close()

	doc, err := p.docs.Extract(ctx, rc, path.Base(file.Version.Key))
	if err != nil {
		p.logger.Warn("grobid request failed",
			"version_id", file.Version.VersionID,
			"error", err)
		return types.ExtractedDocument{}, fmt.Errorf("%w: version %s: %w", ErrExtractionService, file.Version.VersionID, err)
	}
	return doc, nil
}

func (p *Processor) mineProjects(ctx context.Context, file processor.File, setting types.OpenAIRESetting) (types.ProjectInfo, error) {
	if p.text == nil || p.miner == nil {
		return nil, errors.New("project mining requested but not configured")
	}

	fulltext, err := p.text.Extract(file.Version.URI, textextract.FormatPDF)
	if err != nil {
		return nil, fmt.Errorf("extracting text from version %s: %w", file.Version.VersionID, err)
	}

	info, err := p.miner.Analyze(ctx, fulltext, setting)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, mining.ErrUnavailable) {
		p.logger.Warn("cannot connect to mining service",
			"version_id", file.Version.VersionID,
			"error", err)
		return nil, processor.Abort(fmt.Errorf("%w: %w", ErrMiningUnavailable, err))
	}
	if err != nil {
		return nil, fmt.Errorf("mining version %s: %w", file.Version.VersionID, err)
	}
	return info, nil
}
