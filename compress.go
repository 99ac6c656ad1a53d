package nv

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Compression identifies how a compressed frame's body is encoded.
// These values are stored in frame headers; changing them breaks frame
// compatibility.
type Compression uint8

const (
	// CompressionNone stores the dump as-is.  Used automatically when
	// compression would not shrink the dump.
	CompressionNone Compression = 0
	// CompressionLZ4 is LZ4 block compression.  Fast.
	CompressionLZ4 Compression = 1
	// CompressionZstd is zstd at the default level.  Better ratios on
	// string-heavy lists.
	CompressionZstd Compression = 2
)

// frameHdrLen is tag (1) + uncompressed length (4).
const frameHdrLen = 5

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as printed by String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use and are
// shared.  The decoder never allocates more than a maximal dump.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("nv: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(MaxDumpBytes),
	)
	if err != nil {
		panic("nv: zstd decoder initialization failed: " + err.Error())
	}
}

// errIncompressible means compressing did not shrink the input.
var errIncompressible = errors.New("incompressible")

// MarshalCompressed returns l's dump inside a compressed frame:
//
//	tag:u8 rawlen:u32 body
//
// If c does not shrink the dump, the frame is written with
// CompressionNone instead.
func MarshalCompressed(l *NvList, c Compression) ([]byte, error) {
	raw, err := Marshal(l)
	if err != nil {
		return nil, err
	}
	var body []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		body, err = compressLZ4(raw)
	case CompressionZstd:
		body, err = compressZstd(raw)
	default:
		return nil, fmt.Errorf("nv: unsupported compression %d", uint8(c))
	}
	if errors.Is(err, errIncompressible) || c == CompressionNone {
		c, body, err = CompressionNone, raw, nil
	}
	if err != nil {
		return nil, err
	}

	frame := make([]byte, frameHdrLen, frameHdrLen+len(body))
	frame[0] = byte(c)
	binary.BigEndian.PutUint32(frame[1:], uint32(len(raw)))
	return append(frame, body...), nil
}

// DumpCompressed writes a compressed frame holding l's dump to w.
func DumpCompressed(l *NvList, w io.Writer, c Compression) error {
	frame, err := MarshalCompressed(l, c)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return errors.Wrap(err, "nv: dump compressed")
	}
	return nil
}

// UnmarshalCompressed parses a frame produced by MarshalCompressed.  The
// declared uncompressed length is checked against MaxDumpBytes before
// anything is allocated for it.
func UnmarshalCompressed(frame []byte) (*NvList, error) {
	if len(frame) < frameHdrLen {
		return nil, newErr(ErrDecode, "truncated frame header")
	}
	c := Compression(frame[0])
	rawLen := binary.BigEndian.Uint32(frame[1:frameHdrLen])
	if rawLen > MaxDumpBytes {
		return nil, newErr(ErrMalformedLength, "frame length exceeds MaxDumpBytes")
	}
	body := frame[frameHdrLen:]

	var raw []byte
	var err error
	switch c {
	case CompressionNone:
		if len(body) != int(rawLen) {
			return nil, newErr(ErrMalformedLength, "frame length does not match body")
		}
		raw = body
	case CompressionLZ4:
		raw, err = decompressLZ4(body, int(rawLen))
	case CompressionZstd:
		raw, err = decompressZstd(body, int(rawLen))
	default:
		return nil, newErr(ErrDecode, "unknown compression tag")
	}
	if err != nil {
		return nil, newErr(ErrDecode, err.Error())
	}
	return Unmarshal(raw)
}

// ParseCompressed reads r to EOF and parses the frame.
func ParseCompressed(r io.Reader) (*NvList, error) {
	frame, err := io.ReadAll(io.LimitReader(r, MaxDumpBytes+frameHdrLen+1))
	if err != nil {
		return nil, errors.Wrap(err, "nv: parse compressed")
	}
	if len(frame) > MaxDumpBytes+frameHdrLen {
		return nil, newErr(ErrLimitSize, "frame exceeds MaxDumpBytes")
	}
	return UnmarshalCompressed(frame)
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 when the data is incompressible.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}
