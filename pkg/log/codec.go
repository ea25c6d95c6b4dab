package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// MaxErrorMessage bounds the error text kept in one trace record.
const MaxErrorMessage = 512

// Trace records keep nanosecond timestamps so the request and response of an
// exchange sort correctly.
var (
	traceEncMode = mustEncMode()
	traceDecMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	mode, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: trace encoder: %v", err))
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: trace decoder: %v", err))
	}
	return mode
}

// Scrub returns a copy of event fit for a trace file that may be attached to
// a bug report: query strings and fragments are cut from exchange paths and
// error text is truncated to MaxErrorMessage bytes.
func Scrub(event Event) Event {
	if event.Exchange != nil {
		ex := *event.Exchange
		if i := strings.IndexAny(ex.Path, "?#"); i >= 0 {
			ex.Path = ex.Path[:i]
		}
		event.Exchange = &ex
	}
	if event.Error != nil {
		e := *event.Error
		if len(e.Message) > MaxErrorMessage {
			e.Message = e.Message[:MaxErrorMessage] + "..."
		}
		event.Error = &e
	}
	return event
}

// EncodeEvent scrubs and encodes one trace record.
func EncodeEvent(event Event) ([]byte, error) {
	return traceEncMode.Marshal(Scrub(event))
}

// DecodeEvent decodes a single trace record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := traceDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func newTraceDecoder(r io.Reader) *cbor.Decoder {
	return traceDecMode.NewDecoder(r)
}
