package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/harliandi/go-quadtree/pkg/quadtree"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnsupportedAlgorithm is returned for unknown stream compressors
var ErrUnsupportedAlgorithm = errors.New("unsupported stream algorithm")

// Algorithm is a general-purpose compressor applied to a packed leaf stream
type Algorithm string

const (
	AlgorithmNone   Algorithm = "none"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmBrotli Algorithm = "brotli"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmGzip   Algorithm = "gzip"
)

// ParseAlgorithm maps a name to an Algorithm
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case AlgorithmNone, AlgorithmZstd, AlgorithmLZ4, AlgorithmBrotli, AlgorithmSnappy, AlgorithmGzip:
		return a, nil
	}
	return "", ErrUnsupportedAlgorithm
}

// PackLeaves serializes the tree's leaves in depth-first order: a uvarint
// width and height header, then per leaf the uvarint x, y, width, height
// followed by three color bytes.
func PackLeaves(t *quadtree.Tree) []byte {
	if t == nil || t.Root() == nil {
		return nil
	}
	root := t.Root().Region()
	buf := make([]byte, 0, 2*binary.MaxVarintLen32+t.LeafCount()*11)
	buf = binary.AppendUvarint(buf, uint64(root.Width))
	buf = binary.AppendUvarint(buf, uint64(root.Height))
	t.Walk(func(n *quadtree.Node, _ int) bool {
		if !n.IsLeaf() {
			return true
		}
		r, c := n.Region(), n.Color()
		buf = binary.AppendUvarint(buf, uint64(r.X))
		buf = binary.AppendUvarint(buf, uint64(r.Y))
		buf = binary.AppendUvarint(buf, uint64(r.Width))
		buf = binary.AppendUvarint(buf, uint64(r.Height))
		buf = append(buf, c.R, c.G, c.B)
		return true
	})
	return buf
}

// Compress runs data through algo and returns the compressed bytes
func Compress(algo Algorithm, data []byte) ([]byte, error) {
	switch algo {
	case AlgorithmNone:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case AlgorithmZstd:
		enc := zstdEncPool.Get().(*zstd.Encoder)
		defer zstdEncPool.Put(enc)
		return enc.EncodeAll(data, nil), nil
	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil
	}

	var buf bytes.Buffer
	w, err := newStreamWriter(algo, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newStreamWriter(algo Algorithm, w io.Writer) (io.WriteCloser, error) {
	switch algo {
	case AlgorithmLZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, err
		}
		return zw, nil
	case AlgorithmBrotli:
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	case AlgorithmGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	}
	return nil, ErrUnsupportedAlgorithm
}

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

// Trials run concurrently, so each goroutine borrows its own encoder.
var zstdEncPool = sync.Pool{
	New: func() any {
		return mustNewZstdEncoder()
	},
}
