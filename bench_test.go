// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package bfp

import (
	"bytes"
	"io/ioutil"
	"testing"

	"go.e43.eu/bfp/internal/compress"
)

func EncodeBenchmarkCommon(b *testing.B, rec *Record) {
	b.Run("BFPEncode", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, err := Encode(rec)
			if err != nil {
				b.Fatalf("Encode: %s", err)
			}
		}
	})

	b.Run("BFPWriteDiscard", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			err := Write(ioutil.Discard, rec)
			if err != nil {
				b.Fatalf("Write: %s", err)
			}
		}
	})

	b.Run("BFPWriteBuffer", func(b *testing.B) {
		var buf bytes.Buffer
		for i := 0; i < b.N; i++ {
			err := Write(&buf, rec)
			if err != nil {
				b.Fatalf("Write: %s", err)
			}

			if (i % 2048) == 0 {
				buf.Reset()
			}
		}
	})
}

func ParseBenchmarkCommon(b *testing.B, rec *Record) {
	buf, err := Encode(rec)
	if err != nil {
		b.Fatalf("Encode: %s", err)
	}
	s := rec.Struct()

	b.Run("BFPParse", func(b *testing.B) {
		b.SetBytes(int64(len(buf)))
		for i := 0; i < b.N; i++ {
			_, err := Parse(s, buf, ParseOptions{Version: rec.Version(), Strict: true})
			if err != nil {
				b.Fatalf("Parse: %s", err)
			}
		}
	})

	b.Run("BFPRead", func(b *testing.B) {
		b.SetBytes(int64(len(buf)))
		for i := 0; i < b.N; i++ {
			_, err := Read(s, bytes.NewReader(buf), ParseOptions{Version: rec.Version()})
			if err != nil {
				b.Fatalf("Read: %s", err)
			}
		}
	})
}

func benchRecord(b *testing.B, s *Struct, ver Version, kv ...interface{}) *Record {
	rec := s.New(ver)
	for i := 0; i < len(kv); i += 2 {
		if err := rec.Set(kv[i].(string), kv[i+1]); err != nil {
			b.Fatalf("Set %s: %s", kv[i], err)
		}
	}
	return rec
}

func BenchmarkScalar(b *testing.B) {
	s := NewStruct("Scalar")
	s.Add("x", Int32)
	s.Add("y", Int64)
	s.Add("s", Str8)

	rec := benchRecord(b, s, Version{}, "x", 123456, "y", 12345678, "s", "Hello Encoders")
	EncodeBenchmarkCommon(b, rec)
	ParseBenchmarkCommon(b, rec)
}

func BenchmarkCountedList(b *testing.B) {
	s := NewStruct("Samples")
	count := s.Add("count", UInt32)
	samples := s.Add("samples", Float32, Repeat(RepeatOptional))
	count.OnRead(SetRepeat(samples).From(count))
	count.OnWrite(Set(count).FromLen(samples))

	vals := make([]interface{}, 4096)
	for i := range vals {
		vals[i] = float32(i) / 3
	}

	rec := benchRecord(b, s, Version{}, "samples", vals)
	EncodeBenchmarkCommon(b, rec)
	ParseBenchmarkCommon(b, rec)
}

func BenchmarkVersioned(b *testing.B) {
	point := NewStruct("Point")
	point.Add("x", Float32)
	point.Add("y", Float32)
	point.Add("z", Float32, MinVer(NewVersion(1, 20)))

	s := NewStruct("Path")
	s.Add("points", StructOf(point), Repeat(64))
	s.Add("closed", Bool8, MinVer(NewVersion(1, 40)))

	for _, ver := range []Version{NewVersion(1, 10), NewVersion(1, 47)} {
		ver := ver
		b.Run(ver.String(), func(b *testing.B) {
			rec := s.New(ver)
			EncodeBenchmarkCommon(b, rec)
			ParseBenchmarkCommon(b, rec)
		})
	}
}

func BenchmarkCompressed(b *testing.B) {
	for _, alg := range []compress.Algorithm{compress.Zlib, compress.Zstd, compress.LZ4} {
		hook, err := compress.New(alg)
		if err != nil {
			b.Fatalf("compress.New: %s", err)
		}

		s := NewStruct("Blob", WithCompressor(hook))
		s.Add("magic", FixedStr(4))
		s.Add("body", UInt16, Repeat(8192), RemainingCompressed())

		b.Run(alg.String(), func(b *testing.B) {
			rec := benchRecord(b, s, Version{}, "magic", "BLOB")
			EncodeBenchmarkCommon(b, rec)
			ParseBenchmarkCommon(b, rec)
		})
	}
}
