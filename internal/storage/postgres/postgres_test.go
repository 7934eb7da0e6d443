package postgres

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"attendance-ledger/internal/storage"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want storage.Kind
	}{
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: storage.KindDuplicate},
		{name: "foreign key", err: &pq.Error{Code: "23503"}, want: storage.KindValidation},
		{name: "bad date", err: &pq.Error{Code: "22007"}, want: storage.KindValidation},
		{name: "connection failure", err: &pq.Error{Code: "08006"}, want: storage.KindConnection},
		{name: "admin shutdown", err: &pq.Error{Code: "57P01"}, want: storage.KindConnection},
		{name: "syntax error", err: &pq.Error{Code: "42601"}, want: storage.KindUnclassified},
		{name: "bad conn", err: driver.ErrBadConn, want: storage.KindConnection},
		{name: "eof", err: fmt.Errorf("read: %w", io.EOF), want: storage.KindConnection},
		{name: "net op", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, want: storage.KindConnection},
		{name: "other", err: errors.New("boom"), want: storage.KindUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.KindOf(classify(tt.err)))
		})
	}
}
