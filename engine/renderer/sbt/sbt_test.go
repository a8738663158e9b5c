package sbt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

// Properties of a typical RTX class device.
var nvidiaLike = Params{
	HandleSize:      32,
	HandleAlignment: 32,
	BaseAlignment:   64,
}

func TestPlanAlignment(t *testing.T) {
	layout, err := Plan(nvidiaLike,
		Record{GroupIndex: 0},
		[]Record{{GroupIndex: 1}},
		[]Record{{GroupIndex: 2, Payload: HitPayload(0x1000, 0x2000)}},
	)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	// Largest record is handle (32) + payload (16) = 48, rounded up to
	// the 32 byte handle alignment.
	if layout.Miss.Stride != 64 {
		t.Fatalf("stride = %d, want 64", layout.Miss.Stride)
	}
	if layout.Raygen.Offset != 0 {
		t.Fatalf("raygen offset = %d, want 0", layout.Raygen.Offset)
	}
	if layout.Raygen.Stride != layout.Raygen.Size {
		t.Fatalf("raygen stride %d must equal its size %d", layout.Raygen.Stride, layout.Raygen.Size)
	}
	for _, r := range []Region{layout.Raygen, layout.Miss, layout.Hit} {
		if r.Offset%uint64(nvidiaLike.BaseAlignment) != 0 {
			t.Fatalf("region offset %d not on base alignment %d", r.Offset, nvidiaLike.BaseAlignment)
		}
	}
	if layout.Hit.Offset <= layout.Miss.Offset || layout.Miss.Offset <= layout.Raygen.Offset {
		t.Fatalf("regions out of order: rg=%d miss=%d hit=%d",
			layout.Raygen.Offset, layout.Miss.Offset, layout.Hit.Offset)
	}
	if layout.TotalSize != layout.Hit.Offset+layout.Hit.Size {
		t.Fatalf("total size %d does not end at the hit region", layout.TotalSize)
	}
}

func TestPlanRecordOverflow(t *testing.T) {
	params := nvidiaLike
	params.MaxRecordSize = 40
	_, err := Plan(params,
		Record{GroupIndex: 0},
		nil,
		[]Record{{GroupIndex: 1, Payload: HitPayload(1, 2)}},
	)
	if !errors.Is(err, core.ErrRecordOverflow) {
		t.Fatalf("expected ErrRecordOverflow, got %v", err)
	}
}

func TestPlanZeroHandleSize(t *testing.T) {
	_, err := Plan(Params{}, Record{}, nil, nil)
	if !errors.Is(err, core.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage, got %v", err)
	}
}

func TestWrite(t *testing.T) {
	handles := [][]byte{
		bytes.Repeat([]byte{0xaa}, 32),
		bytes.Repeat([]byte{0xbb}, 32),
		bytes.Repeat([]byte{0xcc}, 32),
	}
	payload := HitPayload(0xdeadbeef, 0xcafebabe)
	layout, err := Plan(nvidiaLike,
		Record{GroupIndex: 0},
		[]Record{{GroupIndex: 2}},
		[]Record{{GroupIndex: 1, Payload: payload}},
	)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	table := make([]byte, layout.TotalSize)
	if err := layout.Write(table, handles); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !bytes.Equal(table[layout.Raygen.Offset:layout.Raygen.Offset+32], handles[0]) {
		t.Fatal("raygen handle not written at region start")
	}
	if !bytes.Equal(table[layout.Miss.Offset:layout.Miss.Offset+32], handles[2]) {
		t.Fatal("miss handle not written at region start")
	}
	hitBase := layout.Hit.Offset
	if !bytes.Equal(table[hitBase:hitBase+32], handles[1]) {
		t.Fatal("hit handle not written at region start")
	}
	if !bytes.Equal(table[hitBase+32:hitBase+48], payload) {
		t.Fatal("hit payload not written after the handle")
	}
}

func TestWriteBadHandle(t *testing.T) {
	layout, err := Plan(nvidiaLike, Record{GroupIndex: 0}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	table := make([]byte, layout.TotalSize)

	if err := layout.Write(table, nil); !errors.Is(err, core.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage for missing handle, got %v", err)
	}
	if err := layout.Write(table, [][]byte{make([]byte, 16)}); !errors.Is(err, core.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage for short handle, got %v", err)
	}
	if err := layout.Write(make([]byte, 8), [][]byte{make([]byte, 32)}); !errors.Is(err, core.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage for short destination, got %v", err)
	}
}

func TestHitPayloadEncoding(t *testing.T) {
	payload := HitPayload(0x0102030405060708, 0x1112131415161718)
	if len(payload) != 16 {
		t.Fatalf("payload length = %d, want 16", len(payload))
	}
	if got := binary.LittleEndian.Uint64(payload[0:]); got != 0x0102030405060708 {
		t.Fatalf("index address = %#x", got)
	}
	if got := binary.LittleEndian.Uint64(payload[8:]); got != 0x1112131415161718 {
		t.Fatalf("normal address = %#x", got)
	}
}
