// Copyright 2025 KittyLit Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/varint"

	"github.com/kittylit/bookfinder/core"
)

// MUS serializers for every persisted shape: cached result sets, daily usage
// counters and the semantic index file. Timestamps are stored as Unix
// microseconds. Serializers are hand-composed from the varint primitives;
// strings are length-prefixed, floats are stored as their IEEE 754 bits.

// BookMUS serializes core.Book.
var BookMUS = bookMUS{}

// CacheEntryMUS serializes core.CacheEntry.
var CacheEntryMUS = cacheEntryMUS{}

// UsageCounterMUS serializes core.UsageCounter.
var UsageCounterMUS = usageCounterMUS{}

// VectorMUS serializes an embedding vector.
var VectorMUS = vectorMUS{}

// MarshalCacheEntry serializes a CacheEntry to bytes.
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	buf := make([]byte, CacheEntryMUS.Size(*entry))
	CacheEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*core.CacheEntry, error) {
	entry, _, err := CacheEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalUsageCounter serializes a UsageCounter to bytes.
func MarshalUsageCounter(counter *core.UsageCounter) []byte {
	buf := make([]byte, UsageCounterMUS.Size(*counter))
	UsageCounterMUS.Marshal(*counter, buf)
	return buf
}

// UnmarshalUsageCounter deserializes a UsageCounter from bytes.
func UnmarshalUsageCounter(data []byte) (*core.UsageCounter, error) {
	counter, _, err := UsageCounterMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

// ---- string primitive ----

func marshalString(v string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	n += copy(bs[n:], v)
	return n
}

func unmarshalString(bs []byte) (v string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return "", n, err
	}
	if length < 0 || n+length > len(bs) {
		return "", n, ErrTruncatedData
	}
	return string(bs[n : n+length]), n + length, nil
}

func sizeString(v string) int {
	return varint.Int.Size(len(v)) + len(v)
}

// ---- float primitives (IEEE 754 bits as varint) ----

func marshalFloat64(v float64, bs []byte) int {
	return varint.Uint64.Marshal(math.Float64bits(v), bs)
}

func unmarshalFloat64(bs []byte) (float64, int, error) {
	bits, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	return math.Float64frombits(bits), n, nil
}

func sizeFloat64(v float64) int {
	return varint.Uint64.Size(math.Float64bits(v))
}

func marshalFloat32(v float32, bs []byte) int {
	return varint.Uint64.Marshal(uint64(math.Float32bits(v)), bs)
}

func unmarshalFloat32(bs []byte) (float32, int, error) {
	bits, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	return math.Float32frombits(uint32(bits)), n, nil
}

func sizeFloat32(v float32) int {
	return varint.Uint64.Size(uint64(math.Float32bits(v)))
}

// ---- Book ----

type bookMUS struct{}

func (s bookMUS) Marshal(v core.Book, bs []byte) (n int) {
	n = marshalString(v.Title, bs)
	n += marshalString(v.Author, bs[n:])
	n += marshalString(v.Description, bs[n:])
	n += marshalString(v.Isbn, bs[n:])
	n += marshalString(v.Genre, bs[n:])
	n += marshalString(v.Language, bs[n:])
	n += marshalString(v.AgeGroup, bs[n:])
	n += marshalString(v.PublicationYear, bs[n:])
	n += marshalString(v.ThumbnailURL, bs[n:])
	n += marshalString(v.Source, bs[n:])
	n += varint.Int.Marshal(v.Popularity, bs[n:])
	n += marshalFloat64(v.Similarity, bs[n:])
	return n
}

func (s bookMUS) Unmarshal(bs []byte) (v core.Book, n int, err error) {
	var n1 int
	if v.Title, n, err = unmarshalString(bs); err != nil {
		return
	}
	if v.Author, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Description, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Isbn, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Genre, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Language, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.AgeGroup, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.PublicationYear, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ThumbnailURL, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Source, n1, err = unmarshalString(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Popularity, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Similarity, n1, err = unmarshalFloat64(bs[n:]); err != nil {
		return
	}
	n += n1
	return v, n, nil
}

func (s bookMUS) Size(v core.Book) (size int) {
	size = sizeString(v.Title)
	size += sizeString(v.Author)
	size += sizeString(v.Description)
	size += sizeString(v.Isbn)
	size += sizeString(v.Genre)
	size += sizeString(v.Language)
	size += sizeString(v.AgeGroup)
	size += sizeString(v.PublicationYear)
	size += sizeString(v.ThumbnailURL)
	size += sizeString(v.Source)
	size += varint.Int.Size(v.Popularity)
	size += sizeFloat64(v.Similarity)
	return size
}

// ---- CacheEntry ----

type cacheEntryMUS struct{}

func (s cacheEntryMUS) Marshal(v core.CacheEntry, bs []byte) (n int) {
	n = marshalString(v.QueryHash, bs)
	n += varint.Int.Marshal(len(v.Items), bs[n:])
	for _, item := range v.Items {
		n += BookMUS.Marshal(item, bs[n:])
	}
	n += varint.Uint64.Marshal(uint64(v.Timestamp.UnixMicro()), bs[n:])
	return n
}

func (s cacheEntryMUS) Unmarshal(bs []byte) (v core.CacheEntry, n int, err error) {
	var n1 int
	if v.QueryHash, n, err = unmarshalString(bs); err != nil {
		return
	}
	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count < 0 {
		return v, n, ErrTruncatedData
	}
	v.Items = make([]core.Book, 0, count)
	for i := 0; i < count; i++ {
		var item core.Book
		if item, n1, err = BookMUS.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		v.Items = append(v.Items, item)
	}
	var micros uint64
	if micros, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.Timestamp = time.UnixMicro(int64(micros)).UTC()
	return v, n, nil
}

func (s cacheEntryMUS) Size(v core.CacheEntry) (size int) {
	size = sizeString(v.QueryHash)
	size += varint.Int.Size(len(v.Items))
	for _, item := range v.Items {
		size += BookMUS.Size(item)
	}
	size += varint.Uint64.Size(uint64(v.Timestamp.UnixMicro()))
	return size
}

// ---- UsageCounter ----

type usageCounterMUS struct{}

func (s usageCounterMUS) Marshal(v core.UsageCounter, bs []byte) (n int) {
	n = marshalString(v.Date, bs)
	n += varint.Int.Marshal(v.Count, bs[n:])
	return n
}

func (s usageCounterMUS) Unmarshal(bs []byte) (v core.UsageCounter, n int, err error) {
	var n1 int
	if v.Date, n, err = unmarshalString(bs); err != nil {
		return
	}
	if v.Count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return v, n, nil
}

func (s usageCounterMUS) Size(v core.UsageCounter) (size int) {
	return sizeString(v.Date) + varint.Int.Size(v.Count)
}

// ---- embedding vector ----

type vectorMUS struct{}

func (s vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, val := range v {
		n += marshalFloat32(val, bs[n:])
	}
	return n
}

func (s vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	var n1 int
	var count int
	if count, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if count < 0 {
		return nil, n, ErrTruncatedData
	}
	v = make([]float32, 0, count)
	for i := 0; i < count; i++ {
		var val float32
		if val, n1, err = unmarshalFloat32(bs[n:]); err != nil {
			return
		}
		n += n1
		v = append(v, val)
	}
	return v, n, nil
}

func (s vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, val := range v {
		size += sizeFloat32(val)
	}
	return size
}
