package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdfrag/internal/chunker"
	"pdfrag/internal/helper"
	"pdfrag/internal/parser"
	"pdfrag/internal/vectorindex"
)

// Upload is one file of an upload batch.
type Upload struct {
	Name string
	Data []byte
}

// Parser extracts ordered page texts from a PDF on disk.
type Parser interface {
	Pages(path string) ([]string, error)
}

// ParserFunc adapts a plain function to the Parser interface.
type ParserFunc func(path string) ([]string, error)

func (f ParserFunc) Pages(path string) ([]string, error) { return f(path) }

// PDFParser extracts with the real PDF reader.
func PDFParser() Parser { return ParserFunc(parser.Pages) }

// Ingestor turns an upload batch into a fresh vector index. Each batch
// replaces the index wholesale; there is no incremental merge.
type Ingestor struct {
	parser   Parser
	embedder embeddings.Embedder
	index    *vectorindex.Index
	chunker  *chunker.Chunker
	tmpDir   string
}

func NewIngestor(p Parser, embedder embeddings.Embedder, index *vectorindex.Index, ch *chunker.Chunker, tmpDir string) *Ingestor {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Ingestor{parser: p, embedder: embedder, index: index, chunker: ch, tmpDir: tmpDir}
}

// Ingest parses, chunks and embeds the batch, then rebuilds the index.
// The first failing file rejects the whole batch, leaving the previous index
// intact. Returns the number of chunks indexed.
func (in *Ingestor) Ingest(ctx context.Context, uploads []Upload) (int, error) {
	var pages []string
	for _, up := range uploads {
		filePages, err := in.parseUpload(up)
		if err != nil {
			return 0, &ParseError{File: up.Name, Err: err}
		}
		log.Debug().Str("file", up.Name).Int("pages", len(filePages)).Msg("parsed upload")
		pages = append(pages, filePages...)
	}

	batchID, err := helper.GenerateUUID()
	if err != nil {
		return 0, err
	}

	chunks := in.chunker.Split(strings.Join(pages, "\n"), batchID)
	if len(chunks) == 0 {
		log.Warn().Msg("upload batch produced no text")
		return 0, in.index.Rebuild(nil, nil)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := in.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, &EmbedError{Err: err}
	}
	if len(vectors) != len(chunks) {
		return 0, &EmbedError{Err: errMismatch(len(chunks), len(vectors))}
	}

	if err := in.index.Rebuild(chunks, vectors); err != nil {
		return 0, err
	}
	log.Info().Int("chunks", len(chunks)).Int("files", len(uploads)).Msg("index rebuilt")
	return len(chunks), nil
}

// parseUpload writes the file to a temporary location for the PDF reader and
// removes it again no matter how parsing went.
func (in *Ingestor) parseUpload(up Upload) ([]string, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(in.tmpDir, id+"-"+filepath.Base(up.Name))
	if err := os.WriteFile(path, up.Data, 0o600); err != nil {
		return nil, err
	}
	defer os.Remove(path)

	return in.parser.Pages(path)
}
