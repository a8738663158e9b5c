package sbt

import (
	"encoding/binary"
	"fmt"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

/**
 * Shader binding table layout. The table packs one record per shader group:
 * the opaque handle the driver hands back, optionally followed by an inline
 * payload the hit shader reads. Record stride and region base offsets obey
 * the device alignment rules, so all the arithmetic lives here where it can
 * be tested without a device.
 */

// Params are the device properties the layout math depends on, queried from
// the ray tracing pipeline properties at device creation.
type Params struct {
	HandleSize      uint32
	HandleAlignment uint32
	BaseAlignment   uint32
	// MaxRecordSize caps handle plus payload per record. Zero disables
	// the cap.
	MaxRecordSize uint32
}

// Record is one table entry: a group index into the pipeline's shader groups
// plus an optional payload stored inline after the handle.
type Record struct {
	GroupIndex uint32
	Payload    []byte
}

// Region is one of the raygen, miss or hit spans of the packed table.
type Region struct {
	Offset uint64
	Stride uint64
	Size   uint64
}

// Layout is the resolved placement of every region within a single buffer.
type Layout struct {
	Raygen Region
	Miss   Region
	Hit    Region

	TotalSize uint64
	stride    uint64
	handle    uint64
	raygen    []Record
	miss      []Record
	hit       []Record
}

func alignUp(v, alignment uint64) uint64 {
	if alignment == 0 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}

// Plan computes the packed layout for the given records. Every record shares
// one stride, chosen as the largest handle-plus-payload rounded up to the
// handle alignment. Each region starts on the base alignment. The raygen
// region must hold exactly one record and its stride must equal its size.
func Plan(params Params, raygen Record, miss, hit []Record) (*Layout, error) {
	if params.HandleSize == 0 {
		return nil, fmt.Errorf("handle size is zero: %w", core.ErrInvalidUsage)
	}

	maxRecord := uint64(params.HandleSize)
	for _, r := range append(append([]Record{raygen}, miss...), hit...) {
		size := uint64(params.HandleSize) + uint64(len(r.Payload))
		if params.MaxRecordSize != 0 && size > uint64(params.MaxRecordSize) {
			return nil, fmt.Errorf(
				"group %d record is %d bytes, budget is %d: %w",
				r.GroupIndex, size, params.MaxRecordSize, core.ErrRecordOverflow)
		}
		if size > maxRecord {
			maxRecord = size
		}
	}

	stride := alignUp(maxRecord, uint64(params.HandleAlignment))
	layout := &Layout{
		stride: stride,
		handle: uint64(params.HandleSize),
		raygen: []Record{raygen},
		miss:   miss,
		hit:    hit,
	}

	var cursor uint64
	place := func(count int) Region {
		cursor = alignUp(cursor, uint64(params.BaseAlignment))
		r := Region{Offset: cursor, Stride: stride, Size: stride * uint64(count)}
		cursor += r.Size
		return r
	}
	layout.Raygen = place(1)
	// The raygen region is addressed as a single record whose stride and
	// size must match.
	layout.Raygen.Stride = layout.Raygen.Size
	layout.Miss = place(len(miss))
	layout.Hit = place(len(hit))
	layout.TotalSize = cursor
	return layout, nil
}

// Write packs handles and payloads into dst, which must be at least
// TotalSize bytes. handles holds the driver's opaque group handles, indexed
// by group, each HandleSize bytes.
func (l *Layout) Write(dst []byte, handles [][]byte) error {
	if uint64(len(dst)) < l.TotalSize {
		return fmt.Errorf("destination is %d bytes, table needs %d: %w",
			len(dst), l.TotalSize, core.ErrInvalidUsage)
	}
	write := func(region Region, records []Record) error {
		for i, r := range records {
			if int(r.GroupIndex) >= len(handles) {
				return fmt.Errorf("group index %d out of range (%d handles): %w",
					r.GroupIndex, len(handles), core.ErrInvalidUsage)
			}
			h := handles[r.GroupIndex]
			if uint64(len(h)) != l.handle {
				return fmt.Errorf("handle for group %d is %d bytes, expected %d: %w",
					r.GroupIndex, len(h), l.handle, core.ErrInvalidUsage)
			}
			base := region.Offset + uint64(i)*l.stride
			copy(dst[base:], h)
			copy(dst[base+l.handle:], r.Payload)
		}
		return nil
	}
	if err := write(l.Raygen, l.raygen); err != nil {
		return err
	}
	if err := write(l.Miss, l.miss); err != nil {
		return err
	}
	return write(l.Hit, l.hit)
}

// HitPayload encodes the per-geometry addresses the closest hit shader reads
// from its record: the index buffer address followed by the vertex normal
// buffer address, little endian.
func HitPayload(indexAddress, normalAddress uint64) []byte {
	payload := make([]byte, 16)
	binary.LittleEndian.PutUint64(payload[0:], indexAddress)
	binary.LittleEndian.PutUint64(payload[8:], normalAddress)
	return payload
}
