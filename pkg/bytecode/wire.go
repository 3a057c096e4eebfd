package bytecode

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ChunkFileVersion is the current chunk file format version.
// Increment when making incompatible changes to the format.
const ChunkFileVersion uint16 = 1

// ChunkFileMagic tags chunk files: "LXBC" (Lox ByteCode).
const ChunkFileMagic = "LXBC"

// ChunkFileExt is the conventional extension for chunk files.
const ChunkFileExt = ".loxc"

var (
	ErrBadMagic       = errors.New("not a chunk file")
	ErrVersion        = errors.New("unsupported chunk file version")
	ErrMalformedChunk = errors.New("malformed chunk")
)

// chunkFile is the envelope written to disk and sent over the wire.
type chunkFile struct {
	Magic   string `cbor:"1,keyasint"`
	Version uint16 `cbor:"2,keyasint"`
	Name    string `cbor:"3,keyasint,omitempty"`
	Chunk   *Chunk `cbor:"4,keyasint"`
}

// cborEncMode uses canonical options for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalChunk serializes a named chunk to CBOR bytes.
func MarshalChunk(name string, c *Chunk) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("bytecode: marshal chunk: %w: nil chunk", ErrMalformedChunk)
	}
	return cborEncMode.Marshal(&chunkFile{
		Magic:   ChunkFileMagic,
		Version: ChunkFileVersion,
		Name:    name,
		Chunk:   c,
	})
}

// UnmarshalChunk deserializes and validates a chunk from CBOR bytes,
// returning the chunk's name alongside it.
func UnmarshalChunk(data []byte) (string, *Chunk, error) {
	var f chunkFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return "", nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if f.Magic != ChunkFileMagic {
		return "", nil, fmt.Errorf("bytecode: %w: magic %q", ErrBadMagic, f.Magic)
	}
	if f.Version == 0 || f.Version > ChunkFileVersion {
		return "", nil, fmt.Errorf("bytecode: %w: %d (supported: %d)", ErrVersion, f.Version, ChunkFileVersion)
	}
	if f.Chunk == nil {
		return "", nil, fmt.Errorf("bytecode: %w: missing chunk", ErrMalformedChunk)
	}
	if err := f.Chunk.Validate(); err != nil {
		return "", nil, fmt.Errorf("bytecode: %w", err)
	}
	return f.Name, f.Chunk, nil
}

// WriteChunkFile writes a named chunk to path.
func WriteChunkFile(path, name string, c *Chunk) error {
	data, err := MarshalChunk(name, c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// ReadChunkFile reads and validates a chunk file.
func ReadChunkFile(path string) (string, *Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	name, c, err := UnmarshalChunk(data)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return name, c, nil
}
