package scan

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dutchcoders/go-clamd"
)

type fakeScanner struct {
	results []*clamd.ScanResult
	err     error
	read    []byte
}

func (f *fakeScanner) ScanStream(r io.Reader, _ chan bool) (chan *clamd.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.read, _ = io.ReadAll(r)
	ch := make(chan *clamd.ScanResult, len(f.results))
	for _, res := range f.results {
		ch <- res
	}
	close(ch)
	return ch, nil
}

func TestScan_Clean(t *testing.T) {
	fake := &fakeScanner{results: []*clamd.ScanResult{{Status: clamd.RES_OK}}}
	c := &Clamd{client: fake}

	if err := c.Scan(context.Background(), []byte("%PDF-1.4")); err != nil {
		t.Fatalf("expected clean, got %v", err)
	}
	if string(fake.read) != "%PDF-1.4" {
		t.Fatalf("scanner did not receive the file")
	}
}

func TestScan_Infected(t *testing.T) {
	c := &Clamd{client: &fakeScanner{results: []*clamd.ScanResult{{Status: clamd.RES_FOUND, Description: "Eicar-Test-Signature"}}}}

	err := c.Scan(context.Background(), []byte("X5O!P%@AP"))
	if !errors.Is(err, ErrInfected) {
		t.Fatalf("expected ErrInfected, got %v", err)
	}
}

func TestScan_Unavailable(t *testing.T) {
	c := &Clamd{client: &fakeScanner{err: errors.New("dial tcp: connection refused")}}

	err := c.Scan(context.Background(), []byte("x"))
	if err == nil || errors.Is(err, ErrInfected) {
		t.Fatalf("expected scanner error, got %v", err)
	}
}
