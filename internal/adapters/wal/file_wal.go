package wal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// entry format: [8 bytes id][4 bytes len][4 bytes crc32][len bytes json]
const recordHeaderLen = 16

// maxRecordLen bounds a single encoded sample; anything larger is garbage.
const maxRecordLen = 1 << 20

var errCorruptRecord = errors.New("corrupt wal record")

// FileWAL is an append-only log of emitted samples with a committed watermark
// kept in a sidecar file.
type FileWAL struct {
	mu        sync.Mutex
	dir       string
	path      string
	metaPath  string
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.WALEntryID
	committed ports.WALEntryID
	sizeBytes int64
}

func NewFileWAL(dir string) (*FileWAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w := &FileWAL{
		dir:      dir,
		path:     filepath.Join(dir, "samples.wal"),
		metaPath: filepath.Join(dir, "samples.meta"),
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	if err := w.bootstrap(); err != nil {
		_ = w.file.Close()
		return nil, err
	}
	return w, nil
}

func (w *FileWAL) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.writer = bufio.NewWriterSize(f, 64<<10)
	return nil
}

func (w *FileWAL) bootstrap() error {
	if err := w.scanExisting(); err != nil {
		return err
	}
	if err := w.loadCommitted(); err != nil {
		return err
	}
	if w.nextID < w.committed {
		w.nextID = w.committed
	}
	return nil
}

// scanExisting finds the last valid record and cuts off a torn tail left by
// a crash mid-append.
func (w *FileWAL) scanExisting() error {
	rf, err := os.Open(w.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	var (
		offset int64
		lastID ports.WALEntryID
	)
	r := bufio.NewReader(rf)
	for {
		id, body, err := readRecord(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, errCorruptRecord) {
				break
			}
			return fmt.Errorf("wal scan: %w", err)
		}
		offset += recordHeaderLen + int64(len(body))
		lastID = id
	}

	if err := w.file.Truncate(offset); err != nil {
		return err
	}
	w.sizeBytes = offset
	w.nextID = lastID
	return nil
}

func (w *FileWAL) loadCommitted() error {
	data, err := os.ReadFile(w.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("wal meta parse: %w", err)
	}
	w.committed = ports.WALEntryID(u)
	return nil
}

func (w *FileWAL) Append(s *domain.Sample) (ports.WALEntryID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := json.Marshal(s)
	if err != nil {
		return 0, err
	}

	id := w.nextID + 1
	n, err := writeRecord(w.writer, id, b)
	if err != nil {
		return 0, err
	}
	w.nextID = id
	w.sizeBytes += int64(n)
	return id, nil
}

// Iterate visits the records present when it is called. fn runs without the
// WAL lock held, so it may block on a consumer that commits.
func (w *FileWAL) Iterate(from ports.WALEntryID, fn func(id ports.WALEntryID, s *domain.Sample) error) error {
	w.mu.Lock()
	if err := w.writer.Flush(); err != nil {
		w.mu.Unlock()
		return err
	}
	size := w.sizeBytes
	w.mu.Unlock()

	return iterateFile(w.path, size, from, fn)
}

func iterateFile(path string, size int64, from ports.WALEntryID, fn func(id ports.WALEntryID, s *domain.Sample) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(io.LimitReader(f, size))
	for {
		id, body, err := readRecord(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("corrupt WAL: %w", err)
		}
		if id < from {
			continue
		}

		var s domain.Sample
		if err := json.Unmarshal(body, &s); err != nil {
			return fmt.Errorf("corrupt WAL entry %d: %w", id, err)
		}
		if err := fn(id, &s); err != nil {
			return err
		}
	}
}

// Commit flushes pending appends to disk and advances the watermark.
func (w *FileWAL) Commit(upto ports.WALEntryID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if upto > w.committed {
		w.committed = upto
	}
	return w.persistMetaLocked()
}

// TruncateCommitted rewrites the log keeping only uncommitted records.
func (w *FileWAL) TruncateCommitted() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}

	tmpPath := w.path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(tmp)
	var size int64
	err = iterateFile(w.path, w.sizeBytes, w.committed+1, func(id ports.WALEntryID, s *domain.Sample) error {
		b, err := json.Marshal(s)
		if err != nil {
			return err
		}
		n, err := writeRecord(bw, id, b)
		size += int64(n)
		return err
	})
	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("wal truncate: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return err
	}
	if err := w.open(); err != nil {
		return err
	}
	w.sizeBytes = size
	return nil
}

func (w *FileWAL) Stats() ports.WALStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ports.WALStats{
		OldestUncommitted: w.committed + 1,
		LatestAppended:    w.nextID,
		SizeBytes:         w.sizeBytes,
	}
}

// Close flushes buffered appends and releases the log file.
func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.writer.Flush()
	if serr := w.file.Sync(); err == nil {
		err = serr
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	return err
}

func (w *FileWAL) persistMetaLocked() error {
	data := []byte(fmt.Sprintf("%d\n", w.committed))
	return os.WriteFile(w.metaPath, data, 0o644)
}

func writeRecord(wr io.Writer, id ports.WALEntryID, body []byte) (int, error) {
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(body)))
	binary.BigEndian.PutUint32(hdr[12:16], crc32.ChecksumIEEE(body))

	if _, err := wr.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := wr.Write(body); err != nil {
		return 0, err
	}
	return len(hdr) + len(body), nil
}

func readRecord(r io.Reader) (ports.WALEntryID, []byte, error) {
	var hdr [recordHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	id := ports.WALEntryID(binary.BigEndian.Uint64(hdr[0:8]))
	length := binary.BigEndian.Uint32(hdr[8:12])
	sum := binary.BigEndian.Uint32(hdr[12:16])
	if length > maxRecordLen {
		return 0, nil, fmt.Errorf("%w: id %d length %d", errCorruptRecord, id, length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	if crc32.ChecksumIEEE(body) != sum {
		return 0, nil, fmt.Errorf("%w: id %d checksum mismatch", errCorruptRecord, id)
	}
	return id, body, nil
}

var _ ports.WAL = (*FileWAL)(nil)
