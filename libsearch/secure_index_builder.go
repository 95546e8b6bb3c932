// Copyright 2016 Keybase Inc. All rights reserved.
// Use of this source code is governed by a BSD
// license that can be found in the LICENSE file.

package libsearch

import (
	"bufio"
	"context"
	"io"
	"runtime"
	"strings"

	"github.com/Workiva/go-datastructures/bitarray"
	"github.com/keybase/fsse/logger"
	"golang.org/x/sync/errgroup"
)

// maxLineLength bounds a single corpus line read by `IndexBuilder`.
const maxLineLength = 16 * 1024 * 1024

// corpusLines splits `corpus` into lines.  A trailing "\r" is dropped from each
// line and a final newline does not start a new line.
func corpusLines(corpus string) []string {
	if corpus == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(corpus, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// lineWords splits a line into whitespace delimited words.  Blank lines yield
// no words.
func lineWords(line string, normalize func(string) string) []string {
	fields := strings.Fields(line)
	words := fields[:0]
	for _, w := range fields {
		w = strings.TrimSpace(w)
		if normalize != nil {
			w = normalize(w)
		}
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// postings accumulates signature to document set pairs before an Index is
// frozen.
type postings map[Signature]bitarray.BitArray

func (p postings) add(sig Signature, docID uint64) {
	docs, ok := p[sig]
	if !ok {
		docs = bitarray.NewSparseBitArray()
		p[sig] = docs
	}
	docs.SetBit(docID)
}

// BuildIndex builds the index of `corpus` under `key`.  Every non-blank line is
// a document whose reference is its zero-based position among all lines of
// the corpus, blank ones included.
func BuildIndex(key Key, corpus string) *Index {
	p := make(postings)
	for i, line := range corpusLines(corpus) {
		for _, word := range lineWords(line, nil) {
			p.add(ComputeSignature(key, word), uint64(i))
		}
	}
	return newIndex(p)
}

// IndexBuilder builds indexes over corpora read from a stream, computing
// signatures on several goroutines.
type IndexBuilder struct {
	key       Key                 // The key for every signature computed by this builder.
	workers   int                 // The maximum number of lines being hashed at once.
	normalize func(string) string // Applied to each word, and to each trapdoor word.
}

// BuilderOption configures an `IndexBuilder`.
type BuilderOption func(*IndexBuilder)

// WithWorkers sets the number of goroutines computing signatures.  Values below
// one are ignored.
func WithWorkers(n int) BuilderOption {
	return func(ib *IndexBuilder) {
		if n > 0 {
			ib.workers = n
		}
	}
}

// WithNormalizer makes the builder pass every word, including trapdoor words,
// through `fn` first.  Words that normalize to the empty string are dropped.
func WithNormalizer(fn func(string) string) BuilderOption {
	return func(ib *IndexBuilder) {
		ib.normalize = fn
	}
}

// CreateIndexBuilder instantiates an `IndexBuilder` for `key`.  By default it
// uses one worker per CPU and no normalization.
func CreateIndexBuilder(key Key, opts ...BuilderOption) *IndexBuilder {
	ib := &IndexBuilder{key: key, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(ib)
	}
	return ib
}

// lineSignatures is the result of hashing one corpus line.
type lineSignatures struct {
	docID uint64
	sigs  []Signature
}

// BuildIndex reads `corpus` line by line and builds its index.  The result
// holds the same contents as the free function `BuildIndex` given the same
// text, when no normalizer is configured.
func (ib *IndexBuilder) BuildIndex(ctx context.Context, corpus io.Reader) (*Index, error) {
	l := logger.CreateLogger("IndexBuilder.BuildIndex")
	defer l.LogTime()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ib.workers)
	results := make(chan lineSignatures, ib.workers)

	p := make(postings)
	merged := make(chan struct{})
	go func() {
		defer close(merged)
		for r := range results {
			for _, sig := range r.sigs {
				p.add(sig, r.docID)
			}
		}
	}()

	scanner := bufio.NewScanner(corpus)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	var docID uint64
	for scanner.Scan() {
		if gctx.Err() != nil {
			break
		}
		line := scanner.Text()
		id := docID
		docID++
		words := lineWords(line, ib.normalize)
		if len(words) == 0 {
			continue
		}
		g.Go(func() error {
			sigs := make([]Signature, len(words))
			for i, w := range words {
				sigs[i] = ComputeSignature(ib.key, w)
			}
			select {
			case results <- lineSignatures{docID: id, sigs: sigs}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	close(results)
	<-merged
	if err == nil {
		err = scanner.Err()
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	idx := newIndex(p)
	logger.WithComponent("libsearch").Debug("index built",
		"lines", docID, "signatures", idx.Len())
	return idx, nil
}

// ComputeTrapdoor computes the trapdoor for `word` the same way the builder
// computes signatures for indexed words.
func (ib *IndexBuilder) ComputeTrapdoor(word string) Signature {
	if ib.normalize != nil {
		word = ib.normalize(word)
	}
	return Trapdoor(ib.key, word)
}
