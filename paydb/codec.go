package paydb

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/lnwire"
)

var byteOrder = binary.BigEndian

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	byteOrder.PutUint64(b, v)

	return b
}

func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		var err error
		switch e := element.(type) {
		case string:
			err = wire.WriteVarString(w, 0, e)

		case time.Time:
			err = binary.Write(w, byteOrder, e.UnixNano())

		case time.Duration:
			err = binary.Write(w, byteOrder, int64(e))

		case lnwire.MilliSatoshi:
			err = binary.Write(w, byteOrder, uint64(e))

		default:
			err = binary.Write(w, byteOrder, e)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		var err error
		switch e := element.(type) {
		case *string:
			*e, err = wire.ReadVarString(r, 0)

		case *time.Time:
			var unixNano int64
			err = binary.Read(r, byteOrder, &unixNano)
			*e = time.Unix(0, unixNano)

		case *time.Duration:
			var d int64
			err = binary.Read(r, byteOrder, &d)
			*e = time.Duration(d)

		case *lnwire.MilliSatoshi:
			var amt uint64
			err = binary.Read(r, byteOrder, &amt)
			*e = lnwire.MilliSatoshi(amt)

		default:
			err = binary.Read(r, byteOrder, e)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// serializeAttempt serializes a journal entry. The payment hash is not
// part of the value, it is the key of the enclosing bucket.
func serializeAttempt(a *Attempt) ([]byte, error) {
	var b bytes.Buffer

	err := writeElements(
		&b, a.Time, a.Number, uint8(a.Outcome), a.Delay, a.Amount,
		a.Handle, a.Error,
	)
	if err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func deserializeAttempt(value []byte) (*Attempt, error) {
	var (
		a       Attempt
		outcome uint8
	)

	err := readElements(
		bytes.NewReader(value), &a.Time, &a.Number, &outcome, &a.Delay,
		&a.Amount, &a.Handle, &a.Error,
	)
	if err != nil {
		return nil, err
	}
	a.Outcome = Outcome(outcome)

	return &a, nil
}

func serializeSweep(s *Sweep) ([]byte, error) {
	var b bytes.Buffer

	err := writeElements(
		&b, s.Time, s.DrainReserves, s.Txid, s.Address, s.Label,
		s.Error,
	)
	if err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func deserializeSweep(value []byte) (*Sweep, error) {
	var s Sweep

	err := readElements(
		bytes.NewReader(value), &s.Time, &s.DrainReserves, &s.Txid,
		&s.Address, &s.Label, &s.Error,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
