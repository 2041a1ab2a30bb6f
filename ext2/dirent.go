package ext2

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"golang.org/x/xerrors"
)

const direntHeaderSize = 8

// DirectoryEntry2 is more or less a flat file that maps an arbitrary byte string
type DirectoryEntry2 struct {
	Inode    uint32 `struc:"uint32,little"`
	RecLen   uint16 `struc:"uint16,little"`
	NameLen  uint8  `struc:"uint8,sizeof=Name"`
	FileType uint8  `struc:"uint8"`
	Name     string `struc:"[]byte"`
}

// direntSize is the smallest rec_len able to hold a name of nameLen bytes.
func direntSize(nameLen int) int {
	return align4(direntHeaderSize + nameLen)
}

func (d *DirectoryEntry2) minSize() int {
	return direntSize(int(d.NameLen))
}

// slack is the number of bytes past the entry's own minimal record.
func (d *DirectoryEntry2) slack() int {
	return int(d.RecLen) - d.minSize()
}

func (d *DirectoryEntry2) isDot() bool {
	return d.Name == "." || d.Name == ".."
}

// parseDirectoryEntry decodes the entry at off. The record must lie inside
// [off, end).
func parseDirectoryEntry(block []byte, off, end int) (DirectoryEntry2, error) {
	d, err := unpackDirectoryEntry(block, off)
	if err != nil {
		return DirectoryEntry2{}, err
	}
	if off+int(d.RecLen) > end {
		return DirectoryEntry2{}, xerrors.Errorf("directory entry at %d overruns %d by rec_len %d: %w", off, end, d.RecLen, ErrCorrupted)
	}
	return d, nil
}

// unpackDirectoryEntry decodes the entry at off checking only that it fits in
// the block and is well formed.
func unpackDirectoryEntry(block []byte, off int) (DirectoryEntry2, error) {
	if off < 0 || off%4 != 0 || off+direntHeaderSize > len(block) {
		return DirectoryEntry2{}, xerrors.Errorf("directory entry offset %d: %w", off, ErrCorrupted)
	}

	d := DirectoryEntry2{}
	if err := struc.Unpack(bytes.NewReader(block[off:]), &d); err != nil {
		return DirectoryEntry2{}, xerrors.Errorf("failed to parse directory entry at %d (%v): %w", off, err, ErrCorrupted)
	}
	rec := int(d.RecLen)
	if rec < direntHeaderSize || rec%4 != 0 || rec < d.minSize() || off+rec > len(block) {
		return DirectoryEntry2{}, xerrors.Errorf("directory entry at %d has rec_len %d name_len %d: %w", off, d.RecLen, d.NameLen, ErrCorrupted)
	}
	return d, nil
}

func (d *DirectoryEntry2) bytes() ([]byte, error) {
	if len(d.Name) > MaxNameLen {
		return nil, xerrors.Errorf("%q: %w", d.Name, ErrNameTooLong)
	}
	buf := bytes.NewBuffer(nil)
	if err := struc.Pack(buf, d); err != nil {
		return nil, xerrors.Errorf("failed to pack directory entry %q: %w", d.Name, err)
	}
	return buf.Bytes(), nil
}

func putRecLen(block []byte, off int, recLen int) {
	binary.LittleEndian.PutUint16(block[off+4:], uint16(recLen))
}

func putEntryInode(block []byte, off int, ino uint32) {
	binary.LittleEndian.PutUint32(block[off:], ino)
}

func putFileType(block []byte, off int, fileType uint8) {
	block[off+7] = fileType
}
