/*
 * Memkit - Byte Strings, Hash Tables and Compact Maps
 *
 * Copyright Memkit Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command stress churns the core structures with randomized workloads,
// verifying them against in-memory oracles while measuring operation
// latencies. It exists to surface migration, compaction, and growth bugs
// that short unit tests miss.
package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/memkit/memkit"
)

const maxWidth = 40

var (
	flagOps      int
	flagKeySpace int
	flagValueLen int
	flagSeed     int64
	flagOut      string
)

// Result is the CBOR-encoded run summary written with -o.
type Result struct {
	Structure string        `cbor:"structure"`
	Ops       int           `cbor:"ops"`
	KeySpace  int           `cbor:"key_space"`
	Seed      int64         `cbor:"seed"`
	Elapsed   time.Duration `cbor:"elapsed_ns"`
	FinalSize uint64        `cbor:"final_size"`
}

func main() {
	root := &cobra.Command{
		Use:   "stress",
		Short: "stress the core data structures against oracles",
	}
	root.PersistentFlags().IntVarP(&flagOps, "ops", "n", 1_000_000, "operations to run")
	root.PersistentFlags().IntVarP(&flagKeySpace, "keys", "k", 10_000, "distinct keys to draw from")
	root.PersistentFlags().IntVar(&flagValueLen, "value-len", 64, "max value length in bytes")
	root.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "pseudo-random seed (0 picks one)")
	root.PersistentFlags().StringVarP(&flagOut, "out", "o", "", "write a CBOR run summary to this file")

	root.AddCommand(
		&cobra.Command{
			Use:   "table",
			Short: "hash table insert/lookup/delete churn with migrations",
			RunE:  func(*cobra.Command, []string) error { return run("table", stressTable) },
		},
		&cobra.Command{
			Use:   "bytestr",
			Short: "byte string append/grow/shrink churn",
			RunE:  func(*cobra.Command, []string) error { return run("bytestr", stressByteStr) },
		},
		&cobra.Command{
			Use:   "zipmap",
			Short: "packed map set/delete churn with compaction",
			RunE:  func(*cobra.Command, []string) error { return run("zipmap", stressZipmap) },
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type workload func(log *logrus.Entry, r *rand.Rand, lat []float64) (finalSize uint64, err error)

func run(name string, fn workload) error {
	if flagSeed == 0 {
		flagSeed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(flagSeed))

	log := logrus.WithFields(logrus.Fields{
		"structure": name,
		"ops":       flagOps,
		"keys":      flagKeySpace,
		"seed":      flagSeed,
	})
	log.Info("starting")

	lat := make([]float64, flagOps)
	start := time.Now()
	finalSize, err := fn(log, r, lat)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	log.WithFields(logrus.Fields{
		"elapsed":    elapsed,
		"final_size": finalSize,
	}).Info("done")

	fmt.Printf("latency histogram (nanoseconds, %d ops):\n", flagOps)
	h := histogram.Hist(10, lat)
	if err := histogram.Fprint(os.Stdout, h, histogram.Linear(maxWidth)); err != nil {
		return err
	}

	if flagOut != "" {
		blob, err := cbor.Marshal(Result{
			Structure: name,
			Ops:       flagOps,
			KeySpace:  flagKeySpace,
			Seed:      flagSeed,
			Elapsed:   elapsed,
			FinalSize: finalSize,
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagOut, blob, 0o644); err != nil {
			return err
		}
		log.WithField("path", flagOut).Info("summary written")
	}
	return nil
}

func stressTable(log *logrus.Entry, r *rand.Rand, lat []float64) (uint64, error) {
	seed := memkit.NewSeed(r.Uint64(), r.Uint64())
	d := memkit.NewDict(&memkit.DictType{
		Hash: func(key interface{}) uint64 {
			return memkit.Hash(seed, []byte(key.(string)))
		},
		KeyCompare: func(_, a, b interface{}) bool {
			return a.(string) == b.(string)
		},
	}, nil)
	defer d.Release()

	oracle := make(map[string]int, flagKeySpace)

	for i := 0; i < flagOps; i++ {
		key := fmt.Sprintf("key:%d", r.Intn(flagKeySpace))

		opStart := time.Now()
		switch r.Intn(10) {
		case 0, 1, 2, 3:
			d.Replace(key, i)
			oracle[key] = i
		case 4:
			deleted := d.Delete(key)
			_, existed := oracle[key]
			if deleted != existed {
				return 0, fmt.Errorf("op %d: delete %q = %v, oracle %v", i, key, deleted, existed)
			}
			delete(oracle, key)
		case 5:
			// idle-time migration work, like a host event loop
			d.RehashForMs(1)
		default:
			he := d.Find(key)
			want, existed := oracle[key]
			if existed != (he != nil) {
				return 0, fmt.Errorf("op %d: find %q = %v, oracle %v", i, key, he != nil, existed)
			}
			if he != nil && he.Value().(int) != want {
				return 0, fmt.Errorf("op %d: find %q value %v, oracle %v", i, key, he.Value(), want)
			}
		}
		lat[i] = float64(time.Since(opStart).Nanoseconds())

		if i > 0 && i%100_000 == 0 {
			log.WithFields(logrus.Fields{
				"op":        i,
				"size":      d.Size(),
				"slots":     d.Slots(),
				"migrating": d.IsRehashing(),
			}).Info("progress")
		}
	}

	if d.Size() != uint64(len(oracle)) {
		return 0, fmt.Errorf("final size %d, oracle %d", d.Size(), len(oracle))
	}
	return d.Size(), nil
}

func stressByteStr(log *logrus.Entry, r *rand.Rand, lat []float64) (uint64, error) {
	a := memkit.DefaultAllocator

	s, err := memkit.NewEmptyBStr(a)
	if err != nil {
		return 0, err
	}
	oracle := make([]byte, 0, 1<<20)
	chunk := make([]byte, 256)

	for i := 0; i < flagOps; i++ {
		opStart := time.Now()
		switch r.Intn(10) {
		case 0:
			if s, err = s.Shrink(a); err != nil {
				return 0, err
			}
		case 1:
			s.Clear()
			oracle = oracle[:0]
		case 2:
			if len(oracle) > 0 {
				end := r.Intn(len(oracle))
				s.Range(0, end)
				oracle = oracle[:end+1]
			}
		default:
			n := r.Intn(len(chunk))
			r.Read(chunk[:n])
			if s, err = s.Append(a, chunk[:n]); err != nil {
				return 0, err
			}
			oracle = append(oracle, chunk[:n]...)
		}
		lat[i] = float64(time.Since(opStart).Nanoseconds())

		if s.Len() != len(oracle) {
			return 0, fmt.Errorf("op %d: length %d, oracle %d", i, s.Len(), len(oracle))
		}
		if i%4096 == 0 {
			if !bytes.Equal(s.Bytes(), oracle) {
				return 0, fmt.Errorf("op %d: content diverged from oracle", i)
			}
		}
		if i > 0 && i%100_000 == 0 {
			log.WithFields(logrus.Fields{
				"op":  i,
				"len": s.Len(),
				"cap": s.Cap(),
			}).Info("progress")
		}
	}
	final := uint64(s.Len())
	s.Free(a)
	return final, nil
}

func stressZipmap(log *logrus.Entry, r *rand.Rand, lat []float64) (uint64, error) {
	a := memkit.DefaultAllocator

	zm, err := memkit.NewZipmap(a)
	if err != nil {
		return 0, err
	}
	oracle := map[string]string{}

	// packed maps are for small cardinalities
	keySpace := flagKeySpace
	if keySpace > 128 {
		keySpace = 128
	}

	value := make([]byte, flagValueLen)
	for i := 0; i < flagOps; i++ {
		key := fmt.Sprintf("f%d", r.Intn(keySpace))

		opStart := time.Now()
		switch r.Intn(3) {
		case 0:
			var deleted bool
			if zm, deleted, err = zm.Delete(a, []byte(key)); err != nil {
				return 0, err
			}
			if _, existed := oracle[key]; existed != deleted {
				return 0, fmt.Errorf("op %d: delete %q = %v", i, key, deleted)
			}
			delete(oracle, key)
		default:
			n := r.Intn(len(value))
			r.Read(value[:n])
			var updated bool
			if zm, updated, err = zm.Set(a, []byte(key), value[:n]); err != nil {
				return 0, err
			}
			if _, existed := oracle[key]; existed != updated {
				return 0, fmt.Errorf("op %d: set %q updated=%v", i, key, updated)
			}
			oracle[key] = string(value[:n])
		}
		lat[i] = float64(time.Since(opStart).Nanoseconds())

		if i%1024 == 0 {
			if zm.Len() != len(oracle) {
				return 0, fmt.Errorf("op %d: len %d, oracle %d", i, zm.Len(), len(oracle))
			}
			for k, v := range oracle {
				got, ok := zm.Get([]byte(k))
				if !ok || string(got) != v {
					return 0, fmt.Errorf("op %d: key %q diverged from oracle", i, k)
				}
			}
		}
		if i > 0 && i%100_000 == 0 {
			log.WithFields(logrus.Fields{
				"op":   i,
				"len":  zm.Len(),
				"blob": zm.BlobLen(),
			}).Info("progress")
		}
	}
	return uint64(zm.Len()), nil
}
