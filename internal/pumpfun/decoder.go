// =============================
// File: internal/pumpfun/decoder.go
// =============================
package pumpfun

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Anchor event discriminators emitted by the pump.fun program in its logs.
var (
	CreateEventDiscriminator = []byte{0x1b, 0x72, 0xa9, 0x4d, 0xde, 0xeb, 0x63, 0x76}
	TradeEventDiscriminator  = []byte{0xbd, 0xdb, 0x7f, 0xd3, 0x4e, 0xe6, 0x61, 0xee}
)

const (
	discriminatorLen = 8

	// Fixed trade event layout after the discriminator:
	// mint(32) solAmount(8) tokenAmount(8) isBuy(1) user(32)
	// timestamp(8) vSol(8) vToken(8) realSol(8) realToken(8)
	tradeEventLen = 32 + 8 + 8 + 1 + 32 + 8 + 8 + 8 + 8 + 8

	// Fixed tail of the creation event after the three length-prefixed
	// strings: mint(32) bondingCurve(32) user(32).
	createEventFixedLen = 32 + 32 + 32

	// Extended creation tail present on newer program versions:
	// creator(32) timestamp(8) vToken(8) vSol(8) realToken(8) totalSupply(8)
	createEventExtLen = 32 + 8 + 8 + 8 + 8 + 8
)

// DecodeEvent deserializes a raw program event payload. The payload starts
// with an 8-byte discriminator followed by a fixed little-endian layout.
// Unknown discriminators and short buffers fail with *DecodeError.
func DecodeEvent(data []byte) (DecodedEvent, error) {
	if len(data) < discriminatorLen {
		return DecodedEvent{}, &DecodeError{Reason: fmt.Sprintf("payload too short for discriminator: %d bytes", len(data))}
	}

	disc := data[:discriminatorLen]
	body := data[discriminatorLen:]

	switch {
	case bytes.Equal(disc, TradeEventDiscriminator):
		ev, err := decodeTradeEvent(body)
		if err != nil {
			return DecodedEvent{}, err
		}
		return DecodedEvent{Kind: EventTrade, Trade: ev}, nil

	case bytes.Equal(disc, CreateEventDiscriminator):
		ev, err := decodeCreateEvent(body)
		if err != nil {
			return DecodedEvent{}, err
		}
		return DecodedEvent{Kind: EventCreation, Creation: ev}, nil

	default:
		return DecodedEvent{}, &DecodeError{Reason: fmt.Sprintf("unknown discriminator: %x", disc)}
	}
}

// DecodeEventFromLog decodes the base64 payload of a "Program data:" log line.
func DecodeEventFromLog(encoded string) (DecodedEvent, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return DecodedEvent{}, &DecodeError{Reason: "invalid base64 payload: " + err.Error()}
	}
	return DecodeEvent(raw)
}

func decodeTradeEvent(body []byte) (*TradeEvent, error) {
	if len(body) < tradeEventLen {
		return nil, &DecodeError{Reason: fmt.Sprintf("trade event too short: %d bytes, want %d", len(body), tradeEventLen)}
	}

	r := newReader(body)
	mint := r.pubkey()
	solLamports := r.u64()
	tokenUnits := r.u64()
	isBuy := r.byte() != 0
	user := r.pubkey()
	ts := r.i64()
	vSol := r.u64()
	vToken := r.u64()
	realSol := r.u64()
	realToken := r.u64()

	if vToken == 0 {
		return nil, &DecodeError{Reason: "trade event with zero virtual token reserves"}
	}

	direction := DirectionSell
	if isBuy {
		direction = DirectionBuy
	}

	return &TradeEvent{
		TokenAddress:         mint,
		TraderAddress:        user,
		Direction:            direction,
		SolAmount:            scaleSol(solLamports),
		TokenAmount:          scaleToken(tokenUnits),
		VirtualSolReserves:   scaleSol(vSol),
		VirtualTokenReserves: scaleToken(vToken),
		RealSolReserves:      scaleSol(realSol),
		RealTokenReserves:    scaleToken(realToken),
		Timestamp:            time.Unix(ts, 0).UTC(),
	}, nil
}

func decodeCreateEvent(body []byte) (*CreationEvent, error) {
	r := newReader(body)

	name, err := r.borshString()
	if err != nil {
		return nil, &DecodeError{Reason: "create event name: " + err.Error()}
	}
	symbol, err := r.borshString()
	if err != nil {
		return nil, &DecodeError{Reason: "create event symbol: " + err.Error()}
	}
	uri, err := r.borshString()
	if err != nil {
		return nil, &DecodeError{Reason: "create event uri: " + err.Error()}
	}

	if r.remaining() < createEventFixedLen {
		return nil, &DecodeError{Reason: fmt.Sprintf("create event too short: %d bytes remain, want %d", r.remaining(), createEventFixedLen)}
	}

	mint := r.pubkey()
	bondingCurve := r.pubkey()
	user := r.pubkey()

	ev := &CreationEvent{
		TokenAddress:        mint,
		CreatorAddress:      user,
		BondingCurveAddress: bondingCurve,
		Name:                name,
		Symbol:              symbol,
		URI:                 uri,
		CreatedAt:           time.Now().UTC(),
	}

	// Newer program versions append the creator, a block timestamp and the
	// opening curve state. Older payloads end at the user key.
	if r.remaining() >= createEventExtLen {
		ev.CreatorAddress = r.pubkey()
		ev.CreatedAt = time.Unix(r.i64(), 0).UTC()
		ev.VirtualTokenReserves = scaleToken(r.u64())
		ev.VirtualSolReserves = scaleSol(r.u64())
		r.u64() // real token reserves, not carried on the creation event
		ev.TotalSupply = scaleToken(r.u64())
	}

	return ev, nil
}

func scaleSol(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSol
}

func scaleToken(units uint64) float64 {
	return float64(units) / TokenBaseUnits
}

// reader walks a fixed little-endian layout. Bounds are checked by the
// callers before the fixed sections are consumed.
type reader struct {
	data []byte
	off  int
}

func newReader(data []byte) *reader { return &reader{data: data} }

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) pubkey() solana.PublicKey {
	var pk solana.PublicKey
	copy(pk[:], r.data[r.off:r.off+32])
	r.off += 32
	return pk
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.data[r.off : r.off+8])
	r.off += 8
	return v
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) byte() byte {
	b := r.data[r.off]
	r.off++
	return b
}

func (r *reader) borshString() (string, error) {
	if r.remaining() < 4 {
		return "", fmt.Errorf("insufficient data for string length")
	}
	length := int(binary.LittleEndian.Uint32(r.data[r.off : r.off+4]))
	r.off += 4
	if r.remaining() < length {
		return "", fmt.Errorf("insufficient data for string of length %d", length)
	}
	s := string(r.data[r.off : r.off+length])
	r.off += length
	return s, nil
}
