package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"io"
	"math"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Persisted layout, little-endian:
//
//	magic    [4]byte  "PSVX"
//	version  uint16
//	modelLen uint16, model [modelLen]byte
//	rows     uint32
//	dim      uint32
//	digest   uint64
//	data     [rows*dim]float32, row-major in corpus order
const (
	codecMagic   = "PSVX"
	codecVersion = uint16(1)
	maxFloats    = 1 << 31
	maxDim       = 1 << 16

	// AnyRows disables the row count check in Decode.
	AnyRows = -1
)

// Snapshot is a persisted index together with what it was built from.
type Snapshot struct {
	ModelID string
	Digest  uint64
	Index   *Index
}

// CorpusDigest fingerprints doc numbers in order so a reordered or replaced
// corpus is detected even when the row count matches.
func CorpusDigest(docNumbers []string) uint64 {
	h := fnv.New64a()
	for _, d := range docNumbers {
		_, _ = h.Write([]byte(d))
		_, _ = h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

// EncodedSize is the exact byte length Encode produces for s.
func EncodedSize(s *Snapshot) int64 {
	header := int64(len(codecMagic) + 2 + 2 + len(s.ModelID) + 4 + 4 + 8)
	return header + int64(s.Index.Len())*int64(s.Index.Dim())*4
}

// Encode writes s to w.
func Encode(w io.Writer, s *Snapshot) error {
	if len(s.ModelID) > math.MaxUint16 {
		return apperrors.New(apperrors.CodeIndexPersist, "model id too long")
	}
	bw := bufio.NewWriterSize(w, 1<<16)

	var hdr []byte
	hdr = append(hdr, codecMagic...)
	hdr = binary.LittleEndian.AppendUint16(hdr, codecVersion)
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(len(s.ModelID)))
	hdr = append(hdr, s.ModelID...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(s.Index.Len()))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(s.Index.Dim()))
	hdr = binary.LittleEndian.AppendUint64(hdr, s.Digest)
	if _, err := bw.Write(hdr); err != nil {
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "write index header")
	}

	row := make([]byte, 4*s.Index.Dim())
	for _, v := range s.Index.vectors {
		for j, f := range v {
			binary.LittleEndian.PutUint32(row[4*j:], math.Float32bits(f))
		}
		if _, err := bw.Write(row); err != nil {
			return apperrors.Wrap(err, apperrors.CodeIndexPersist, "write index rows")
		}
	}
	if err := bw.Flush(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "flush index")
	}
	return nil
}

// Decode reads a snapshot holding wantRows rows, or any number with AnyRows.
// The header is checked before any row storage is allocated. Any structural
// problem, including a row count mismatch or trailing bytes, yields
// CodeIndexCorrupt.
func Decode(r io.Reader, wantRows int) (*Snapshot, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	corrupt := func(msg string, err error) error {
		if err == nil {
			return apperrors.New(apperrors.CodeIndexCorrupt, msg)
		}
		return apperrors.Wrap(err, apperrors.CodeIndexCorrupt, msg)
	}

	fixed := make([]byte, len(codecMagic)+4)
	if _, err := io.ReadFull(br, fixed); err != nil {
		return nil, corrupt("read index header", err)
	}
	if string(fixed[:4]) != codecMagic {
		return nil, corrupt("bad index magic", nil)
	}
	if v := binary.LittleEndian.Uint16(fixed[4:]); v != codecVersion {
		return nil, corrupt("unsupported index version", nil)
	}
	model := make([]byte, binary.LittleEndian.Uint16(fixed[6:]))
	if _, err := io.ReadFull(br, model); err != nil {
		return nil, corrupt("read model id", err)
	}

	shape := make([]byte, 16)
	if _, err := io.ReadFull(br, shape); err != nil {
		return nil, corrupt("read index shape", err)
	}
	rows := int(binary.LittleEndian.Uint32(shape[0:]))
	dim := int(binary.LittleEndian.Uint32(shape[4:]))
	digest := binary.LittleEndian.Uint64(shape[8:])
	if (rows > 0 && dim == 0) || dim > maxDim || int64(rows)*int64(dim) > maxFloats {
		return nil, corrupt("implausible index shape", nil)
	}
	if wantRows != AnyRows && rows != wantRows {
		return nil, apperrors.Newf(apperrors.CodeIndexCorrupt, "index has %d rows, corpus has %d", rows, wantRows)
	}

	// Rows are appended as they arrive so a lying header on a short file
	// costs no more than the data actually present.
	vectors := make([][]float32, 0, min(rows, 1024))
	row := make([]byte, 4*dim)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, corrupt("truncated index data", err)
		}
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(row[4*j:]))
		}
		vectors = append(vectors, v)
	}
	if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, corrupt("trailing bytes after index data", err)
	}

	ix, err := New(vectors)
	if err != nil {
		return nil, corrupt("rebuild index", err)
	}
	return &Snapshot{ModelID: string(model), Digest: digest, Index: ix}, nil
}
