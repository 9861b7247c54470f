// Package flat implements an exact nearest-neighbor index over unit vectors
// with on-disk persistence.
//
// A persisted index is a two-file unit inside the index directory: vectors.bin
// holds the raw vector matrix behind a small header, meta.db is a bbolt
// database with the units and the index metadata (dimension, metric, embedder
// identity). The two files are written together and validated against each
// other on load.
package flat

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"faqrag/internal/domain"
)

const (
	vectorsFile = "vectors.bin"
	metaFile    = "meta.db"

	// Metric is fixed at build time. Vectors are L2-normalized on build and
	// on query, so cosine similarity reduces to a dot product.
	metric = "cosine"

	// vectors.bin header: magic (8) | dimension uint64 | count uint64,
	// little-endian, followed by count*dimension float64 values.
	headerSize = 24
)

var fileMagic = [8]byte{'F', 'A', 'Q', 'V', 'E', 'C', '0', '1'}

var (
	bucketUnits = []byte("units")
	bucketInfo  = []byte("info")
	keyMeta     = []byte("meta")
)

type indexMeta struct {
	Dimension int    `json:"dimension"`
	Count     int    `json:"count"`
	Metric    string `json:"metric"`
	Embedder  string `json:"embedder"`
}

type storedUnit struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Index holds the unit vectors and supports top-k cosine search. It is
// immutable after Build or Load and safe for concurrent Search calls.
type Index struct {
	dimension int
	embedder  string
	units     []domain.Unit
	vectors   [][]float64
}

// Build embeds every unit with the given embedder and constructs the index.
// It either succeeds completely or returns an error; a partial index is never
// returned. An empty unit list is valid and yields an index that matches
// nothing; its dimension is learned by embedding the probe text.
func Build(ctx context.Context, units []domain.Unit, embedder domain.Embedder) (*Index, error) {
	vectors := make([][]float64, len(units))
	dimension := 0
	for i, u := range units {
		vec, err := embedder.Embed(ctx, u.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding unit %d: %w", i, err)
		}
		if dimension == 0 {
			dimension = len(vec)
		} else if len(vec) != dimension {
			return nil, fmt.Errorf("%w: unit %d has dimension %d, expected %d",
				domain.ErrInvalidArgument, i, len(vec), dimension)
		}
		normalize(vec)
		vectors[i] = vec
	}
	if dimension == 0 {
		probe, err := embedder.Embed(ctx, domain.DimensionProbe)
		if err != nil {
			return nil, fmt.Errorf("probing embedder dimension: %w", err)
		}
		dimension = len(probe)
	}
	copied := make([]domain.Unit, len(units))
	copy(copied, units)
	return &Index{
		dimension: dimension,
		embedder:  embedder.Name(),
		units:     copied,
		vectors:   vectors,
	}, nil
}

// Dimension returns the vector dimension recorded at build time.
func (ix *Index) Dimension() int { return ix.dimension }

// Len returns the number of indexed units.
func (ix *Index) Len() int { return len(ix.units) }

// EmbedderName returns the identity of the model the index was built with.
func (ix *Index) EmbedderName() string { return ix.embedder }

// Search returns up to topK units ordered by descending cosine similarity.
// Equal scores keep their original corpus order. topK larger than the corpus
// returns every unit; an empty index returns no results.
func (ix *Index) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidArgument, topK)
	}
	if len(ix.units) == 0 {
		return nil, nil
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			domain.ErrInvalidArgument, len(vector), ix.dimension)
	}
	query := make([]float64, len(vector))
	copy(query, vector)
	normalize(query)

	scores := make([]float64, len(ix.vectors))
	for i, vec := range ix.vectors {
		scores[i] = dot(vec, query)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if topK > len(order) {
		topK = len(order)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range order[:topK] {
		results = append(results, domain.SearchResult{Unit: ix.units[j], Score: scores[j]})
	}
	return results, nil
}

// Exists reports whether a persisted index is present at path. This is the
// only existence check the index lifecycle relies on.
func Exists(path string) bool {
	_, err := os.Stat(filepath.Join(path, vectorsFile))
	return err == nil
}

// Save persists the index into the directory at path, overwriting any
// previous index. Both files are written to temp names first and renamed into
// place so a crash mid-save never leaves a half-written file behind.
func (ix *Index) Save(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	if err := ix.saveVectors(filepath.Join(path, vectorsFile)); err != nil {
		return err
	}
	return ix.saveMeta(filepath.Join(path, metaFile))
}

func (ix *Index) saveVectors(path string) error {
	var buf bytes.Buffer
	buf.Write(fileMagic[:])
	var header [16]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(ix.dimension))
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(ix.vectors)))
	buf.Write(header[:])
	var scratch [8]byte
	for _, vec := range ix.vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(v))
			buf.Write(scratch[:])
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	return os.Rename(tmp, path)
}

func (ix *Index) saveMeta(path string) error {
	tmp := path + ".tmp"
	os.Remove(tmp)
	db, err := bbolt.Open(tmp, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		ub, err := tx.CreateBucketIfNotExists(bucketUnits)
		if err != nil {
			return err
		}
		for i, u := range ix.units {
			data, err := json.Marshal(storedUnit{Text: u.Text, Source: u.Source})
			if err != nil {
				return err
			}
			if err := ub.Put(unitKey(i), data); err != nil {
				return err
			}
		}
		ib, err := tx.CreateBucketIfNotExists(bucketInfo)
		if err != nil {
			return err
		}
		meta, err := json.Marshal(indexMeta{
			Dimension: ix.dimension,
			Count:     len(ix.units),
			Metric:    metric,
			Embedder:  ix.embedder,
		})
		if err != nil {
			return err
		}
		return ib.Put(keyMeta, meta)
	})
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing metadata: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a persisted index from the directory at path. A missing index
// yields ErrIndexNotFound; anything unparsable or internally inconsistent
// yields ErrIndexCorrupt.
func Load(path string) (*Index, error) {
	vecPath := filepath.Join(path, vectorsFile)
	if _, err := os.Stat(vecPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return nil, err
	}
	dimension, vectors, err := loadVectors(vecPath)
	if err != nil {
		return nil, err
	}
	meta, units, err := loadMeta(filepath.Join(path, metaFile))
	if err != nil {
		return nil, err
	}
	if meta.Metric != metric {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrIndexCorrupt, meta.Metric)
	}
	if meta.Dimension != dimension || meta.Count != len(vectors) || len(units) != len(vectors) {
		return nil, fmt.Errorf("%w: metadata does not match vector file", domain.ErrIndexCorrupt)
	}
	return &Index{
		dimension: dimension,
		embedder:  meta.Embedder,
		units:     units,
		vectors:   vectors,
	}, nil
}

func loadVectors(path string) (int, [][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading vectors: %v", domain.ErrIndexCorrupt, err)
	}
	if len(data) < headerSize || !bytes.Equal(data[:8], fileMagic[:]) {
		return 0, nil, fmt.Errorf("%w: bad vector file header", domain.ErrIndexCorrupt)
	}
	dimension := int(binary.LittleEndian.Uint64(data[8:16]))
	count := int(binary.LittleEndian.Uint64(data[16:24]))
	if dimension < 0 || count < 0 {
		return 0, nil, fmt.Errorf("%w: bad vector file header", domain.ErrIndexCorrupt)
	}
	want := headerSize + count*dimension*8
	if len(data) != want {
		return 0, nil, fmt.Errorf("%w: vector file has %d bytes, expected %d", domain.ErrIndexCorrupt, len(data), want)
	}
	vectors := make([][]float64, count)
	off := headerSize
	for i := range vectors {
		vec := make([]float64, dimension)
		for j := range vec {
			vec[j] = math.Float64frombits(binary.LittleEndian.Uint64(data[off : off+8]))
			off += 8
		}
		vectors[i] = vec
	}
	return dimension, vectors, nil
}

func loadMeta(path string) (indexMeta, []domain.Unit, error) {
	var meta indexMeta
	if _, err := os.Stat(path); err != nil {
		return meta, nil, fmt.Errorf("%w: metadata missing: %v", domain.ErrIndexCorrupt, err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return meta, nil, fmt.Errorf("%w: opening metadata: %v", domain.ErrIndexCorrupt, err)
	}
	defer db.Close()

	var units []domain.Unit
	err = db.View(func(tx *bbolt.Tx) error {
		ib := tx.Bucket(bucketInfo)
		if ib == nil {
			return fmt.Errorf("%w: info bucket missing", domain.ErrIndexCorrupt)
		}
		raw := ib.Get(keyMeta)
		if raw == nil {
			return fmt.Errorf("%w: metadata record missing", domain.ErrIndexCorrupt)
		}
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("%w: parsing metadata: %v", domain.ErrIndexCorrupt, err)
		}
		ub := tx.Bucket(bucketUnits)
		if ub == nil {
			return fmt.Errorf("%w: units bucket missing", domain.ErrIndexCorrupt)
		}
		// Keys are big-endian indexes, so cursor order is corpus order.
		return ub.ForEach(func(_, v []byte) error {
			var su storedUnit
			if err := json.Unmarshal(v, &su); err != nil {
				return fmt.Errorf("%w: parsing unit: %v", domain.ErrIndexCorrupt, err)
			}
			units = append(units, domain.Unit{Text: su.Text, Source: su.Source})
			return nil
		})
	})
	if err != nil {
		return meta, nil, err
	}
	return meta, units, nil
}

func unitKey(i int) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(i))
	return key[:]
}

func normalize(vec []float64) {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
