package codec

import (
	"github.com/aretw0/grapher/pkg/domain"
)

// Identifiers of single-record files.
const (
	IdentLock   = "lock"
	IdentMarker = "marker"
)

// MarshalLock encodes a lock sidecar.
func MarshalLock(info domain.LockInfo) ([]byte, error) {
	return Encode("grapher lock", Assignment{IdentLock, info})
}

// UnmarshalLock decodes a lock sidecar.
func UnmarshalLock(data []byte) (domain.LockInfo, error) {
	var info domain.LockInfo
	if err := DecodeRecord(data, IdentLock, &info); err != nil {
		return domain.LockInfo{}, err
	}
	return info, nil
}

// MarshalMarker encodes an iteration marker.
func MarshalMarker(m domain.Marker) ([]byte, error) {
	return Encode("grapher iteration marker", Assignment{IdentMarker, m})
}

// UnmarshalMarker decodes an iteration marker.
func UnmarshalMarker(data []byte) (domain.Marker, error) {
	var m domain.Marker
	if err := DecodeRecord(data, IdentMarker, &m); err != nil {
		return domain.Marker{}, err
	}
	return m, nil
}
