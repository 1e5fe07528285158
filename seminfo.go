package namedsem

import (
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// SemaphoreInfo is the metadata the creating process records alongside a
// named semaphore. It is advisory: semaphore operations never depend on
// it, and a semaphore whose creator died before writing it still works.
type SemaphoreInfo struct {
	// Name is the identifier the semaphore was created with.
	Name string `msgpack:"name"`

	// InitialValue is the counter value the creator primed.
	InitialValue uint `msgpack:"initial_value"`

	// CreatorPID is the process id of the creator.
	CreatorPID int `msgpack:"creator_pid"`

	// CreatedAt is the creation time in UTC.
	CreatedAt time.Time `msgpack:"created_at"`
}

// Serializer defines the interface for metadata encoding and decoding.
// Implementations convert between Go values and byte slices.
// The default implementation uses MessagePack for efficient binary serialization.
type Serializer interface {
	// Marshal encodes a Go value to bytes.
	Marshal(v interface{}) ([]byte, error)

	// Unmarshal decodes bytes into a Go value.
	Unmarshal(data []byte, v interface{}) error
}

type MsgpackSerializer struct{}

func (ms MsgpackSerializer) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (ms MsgpackSerializer) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// infoSerializer encodes the sidecar. Fixed to MessagePack so any
// cooperating process can decode it regardless of language.
var infoSerializer Serializer = MsgpackSerializer{}

func writeSemInfo(path string, info *SemaphoreInfo) error {
	data, err := infoSerializer.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func readSemInfo(path string) (*SemaphoreInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info SemaphoreInfo
	if err := infoSerializer.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
