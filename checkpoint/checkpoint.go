// Package checkpoint keeps named sample DBs in a local badger store, so long
// renders survive restarts.
package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"row-major.net/harpoon/sampledb"
)

// Key prefixes that denote different tables in the key-value store.
//
// A checkpoint is one manifest row plus the chunks of its encoded sample DB.
// The manifest is written last, so an interrupted first write leaves nothing
// visible, and Get cross-checks the chunk lengths against it.
const (
	manifestPrefix = "manifest/"
	chunkPrefix    = "chunk/"
)

// chunkSize keeps each transaction well under badger's batch limit.
const chunkSize = 1 << 20

func manifestKey(name string) []byte {
	return []byte(manifestPrefix + name)
}

func chunkKey(name string, i int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", chunkPrefix, name, i))
}

// Entry summarizes a stored checkpoint.
type Entry struct {
	Name       string
	RowSize    int
	ColSize    int
	Samples    uint64
	Bytes      int
	Chunks     int
	UpdateTime time.Time
}

func entryFromManifest(name string, m *structpb.Struct) Entry {
	f := m.GetFields()
	return Entry{
		Name:       name,
		RowSize:    int(f["rowSize"].GetNumberValue()),
		ColSize:    int(f["colSize"].GetNumberValue()),
		Samples:    uint64(f["samples"].GetNumberValue()),
		Bytes:      int(f["bytes"].GetNumberValue()),
		Chunks:     int(f["chunks"].GetNumberValue()),
		UpdateTime: time.Unix(int64(f["updateTime"].GetNumberValue()), 0),
	}
}

// glogLogger routes badger's logging into glog.
type glogLogger struct{}

func (glogLogger) Errorf(format string, args ...interface{}) {
	glog.Errorf("badger: "+strings.TrimSuffix(format, "\n"), args...)
}

func (glogLogger) Warningf(format string, args ...interface{}) {
	glog.Warningf("badger: "+strings.TrimSuffix(format, "\n"), args...)
}

func (glogLogger) Infof(format string, args ...interface{}) {
	glog.V(1).Infof("badger: "+strings.TrimSuffix(format, "\n"), args...)
}

func (glogLogger) Debugf(format string, args ...interface{}) {
	glog.V(2).Infof("badger: "+strings.TrimSuffix(format, "\n"), args...)
}

type Store struct {
	DB *badger.DB
}

// Open opens (creating if needed) the store in dir.
func Open(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(glogLogger{}))
	if err != nil {
		return nil, xerrors.Errorf("while opening badger kv dir %q: %w", dir, err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if err := s.DB.Close(); err != nil {
		return xerrors.Errorf("while closing database: %w", err)
	}
	return nil
}

func getManifest(txn *badger.Txn, name string) (*structpb.Struct, bool, error) {
	item, err := txn.Get(manifestKey(name))
	if xerrors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, xerrors.Errorf("while getting manifest for %q: %w", name, err)
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, xerrors.Errorf("while copying manifest for %q: %w", name, err)
	}

	m := &structpb.Struct{}
	if err := proto.Unmarshal(val, m); err != nil {
		return nil, false, xerrors.Errorf("while unmarshaling manifest for %q: %w", name, err)
	}
	return m, true, nil
}

// Put stores db under name, replacing any earlier checkpoint of that name.
func (s *Store) Put(ctx context.Context, name string, db *sampledb.SampleDB) error {
	tracer := otel.Tracer("row-major.net/harpoon/checkpoint")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Store.Put")
	defer span.End()

	span.SetAttributes(attribute.String("name", name))

	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("bad checkpoint name %q", name)
	}

	buf := &bytes.Buffer{}
	if err := sampledb.WriteSampleDB(db, buf); err != nil {
		err := fmt.Errorf("while encoding sample db: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	data := buf.Bytes()

	chunks := 0
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		i := chunks
		if err := s.DB.Update(func(txn *badger.Txn) error {
			return txn.Set(chunkKey(name, i), chunk)
		}); err != nil {
			err := xerrors.Errorf("while writing chunk %d of %q: %w", i, name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		chunks++

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	manifest, err := structpb.NewStruct(map[string]interface{}{
		"rowSize":    db.RowSize,
		"colSize":    db.ColSize,
		"samples":    float64(db.TotalSamples()),
		"bytes":      len(data),
		"chunks":     chunks,
		"updateTime": float64(time.Now().Unix()),
	})
	if err != nil {
		return fmt.Errorf("while building manifest: %w", err)
	}
	manifestBytes, err := proto.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("while marshaling manifest: %w", err)
	}

CommitRetry:
	err = s.DB.Update(func(txn *badger.Txn) error {
		old, found, err := getManifest(txn, name)
		if err != nil {
			return err
		}
		if err := txn.Set(manifestKey(name), manifestBytes); err != nil {
			return err
		}
		if found {
			// Drop chunks left over from a larger earlier checkpoint.
			for i := chunks; i < entryFromManifest(name, old).Chunks; i++ {
				if err := txn.Delete(chunkKey(name, i)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if xerrors.Is(err, badger.ErrConflict) {
		goto CommitRetry
	} else if err != nil {
		err := xerrors.Errorf("while committing manifest for %q: %w", name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	glog.V(1).Infof("Checkpointed %q: %d samples in %d bytes", name, db.TotalSamples(), len(data))
	span.SetStatus(codes.Ok, "")
	return nil
}

// Get loads the checkpoint stored under name.
//
// Returns the sample DB, a "found" indicator, and an error.
func (s *Store) Get(ctx context.Context, name string) (*sampledb.SampleDB, bool, error) {
	tracer := otel.Tracer("row-major.net/harpoon/checkpoint")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Store.Get")
	defer span.End()

	span.SetAttributes(attribute.String("name", name))

	var data []byte
	found := false
	err := s.DB.View(func(txn *badger.Txn) error {
		m, ok, err := getManifest(txn, name)
		if err != nil || !ok {
			return err
		}
		found = true

		e := entryFromManifest(name, m)
		data = make([]byte, 0, e.Bytes)
		for i := 0; i < e.Chunks; i++ {
			item, err := txn.Get(chunkKey(name, i))
			if err != nil {
				return xerrors.Errorf("while getting chunk %d of %q: %w", i, name, err)
			}
			chunk, err := item.ValueCopy(nil)
			if err != nil {
				return xerrors.Errorf("while copying chunk %d of %q: %w", i, name, err)
			}
			data = append(data, chunk...)
		}
		if len(data) != e.Bytes {
			return fmt.Errorf("checkpoint %q is %d bytes, manifest says %d", name, len(data), e.Bytes)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if !found {
		span.SetStatus(codes.Ok, "")
		return nil, false, nil
	}

	db, err := sampledb.ReadSampleDB(bytes.NewReader(data))
	if err != nil {
		err := fmt.Errorf("while decoding checkpoint %q: %w", name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}

	span.SetStatus(codes.Ok, "")
	return db, true, nil
}

// List describes every stored checkpoint, sorted by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	tracer := otel.Tracer("row-major.net/harpoon/checkpoint")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Store.List")
	defer span.End()

	var entries []Entry
	err := s.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Prefix:         []byte(manifestPrefix),
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.KeyCopy(nil)), manifestPrefix)

			val, err := item.ValueCopy(nil)
			if err != nil {
				return xerrors.Errorf("while copying manifest for %q: %w", name, err)
			}
			m := &structpb.Struct{}
			if err := proto.Unmarshal(val, m); err != nil {
				return xerrors.Errorf("while unmarshaling manifest for %q: %w", name, err)
			}
			entries = append(entries, entryFromManifest(name, m))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// Delete removes the checkpoint stored under name.  Deleting a missing
// checkpoint is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	tracer := otel.Tracer("row-major.net/harpoon/checkpoint")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Store.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("name", name))

	err := s.DB.Update(func(txn *badger.Txn) error {
		m, ok, err := getManifest(txn, name)
		if err != nil || !ok {
			return err
		}
		if err := txn.Delete(manifestKey(name)); err != nil {
			return err
		}
		for i := 0; i < entryFromManifest(name, m).Chunks; i++ {
			if err := txn.Delete(chunkKey(name, i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err := xerrors.Errorf("while deleting checkpoint %q: %w", name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
