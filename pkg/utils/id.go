package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

var idSeq uint64

// GenID returns a sortable message id.
func GenID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("msg-%d-%d", n, s)
}

// GenRoomID returns a sortable room id.
func GenRoomID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("room-%d-%d", n, s)
}
