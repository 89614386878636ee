package packlib

import (
	"github.com/pierrec/lz4/v4"
)

// decompressBlock implements §4.B's compressed-payload framing: a 4-byte
// little-endian decompressed-size header followed by an LZ4 block stream.
// Grounded on arloliu/mebo's compress.LZ4Compressor.Decompress, adapted to
// this format's explicit size header rather than mebo's adaptive buffer
// growth (the size is known up front here, so no retry loop is needed).
func decompressBlock(buf []byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, wrap(KindCompression, "decompressBlock", ErrUnexpectedEOF)
	}
	c := newCursor(buf)
	size, err := c.u32()
	if err != nil {
		return nil, wrap(KindCompression, "decompressBlock", err)
	}
	src := buf[4:]
	dst := make([]byte, size)
	if size == 0 {
		return dst, nil
	}
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, wrap(KindCompression, "decompressBlock", err)
	}
	if uint32(n) != size {
		return nil, wrap(KindCompression, "decompressBlock", ErrSizeMismatch)
	}
	return dst, nil
}

// compressBlock mirrors decompressBlock: prepend the decompressed size, then
// the LZ4 block stream, the same "Compressor, CompressBlockBound dst" shape
// as mebo's LZ4Compressor.Compress (here with a fresh Compressor per call).
func compressBlock(data []byte) ([]byte, error) {
	var comp lz4.Compressor
	dstSize := lz4.CompressBlockBound(len(data))
	dst := make([]byte, dstSize)
	n, err := comp.CompressBlock(data, dst)
	if err != nil {
		return nil, wrap(KindCompression, "compressBlock", err)
	}
	out := newWriter()
	out.putU32(uint32(len(data)))
	out.putRaw(dst[:n])
	return out.bytes(), nil
}
