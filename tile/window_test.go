// Copyright 2025 go-highway Authors
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

package tile

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/gomlx/exceptions"
)

// iotaMatrix returns a rows×cols matrix whose element (i, j) is i*cols+j, in
// the given layout.
func iotaMatrix(rows, cols int, layout Layout) []float32 {
	data := make([]float32, rows*cols)
	for i := range rows {
		for j := range cols {
			if layout == ColumnMajor {
				data[j*rows+i] = float32(i*cols + j)
			} else {
				data[i*cols+j] = float32(i*cols + j)
			}
		}
	}
	return data
}

func TestWindowMoveIsAdditive(t *testing.T) {
	view, err := NewTensorView(make([]float32, 64*64), Coord{64, 64}, RowMajor, Bulk)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	for range 100 {
		a := Coord{rng.Intn(33) - 16, rng.Intn(33) - 16}
		b := Coord{rng.Intn(33) - 16, rng.Intn(33) - 16}
		w1, _ := NewWindow(view, Coord{8, 8}, Coord{3, 5}, Distribution{Lanes: 2})
		w2 := w1.Clone()
		w1.Move(a)
		w1.Move(b)
		w2.Move(a.Add(b))
		if w1.Origin() != w2.Origin() {
			t.Fatalf("move %v then %v = %v, move %v = %v", a, b, w1.Origin(), a.Add(b), w2.Origin())
		}
		if w1.Lengths() != (Coord{8, 8}) || w1.Distribution() != (Distribution{Lanes: 2}) {
			t.Fatalf("Move changed lengths %v or distribution %v", w1.Lengths(), w1.Distribution())
		}
	}
}

func TestLoadCoversEveryElementOnce(t *testing.T) {
	for _, layout := range []Layout{RowMajor, ColumnMajor} {
		t.Run(layout.String(), func(t *testing.T) {
			rows, cols := 16, 12
			view, err := NewTensorView(iotaMatrix(rows, cols, layout), Coord{rows, cols}, layout, Bulk)
			if err != nil {
				t.Fatal(err)
			}
			w, err := NewWindow(view, Coord{8, 4}, Coord{4, 6}, Distribution{Lanes: 4})
			if err != nil {
				t.Fatal(err)
			}
			tl := w.Load()
			if tl.Order() != w.Order() {
				t.Errorf("loaded order %s, window order %s", tl.Order(), w.Order())
			}
			seen := make(map[float32]int)
			for lane := range 4 {
				regs := tl.Lane(lane)
				if len(regs) != 8 {
					t.Fatalf("lane %d holds %d elements, want 8", lane, len(regs))
				}
				for _, v := range regs {
					seen[v]++
					row := int(v) / cols
					if owner := (row - 4) / 2; owner != lane {
						t.Errorf("element %v of row %d is in lane %d, want lane %d", v, row, lane, owner)
					}
				}
			}
			for i := range 8 {
				for j := range 4 {
					want := float32((4+i)*cols + 6 + j)
					if seen[want] != 1 {
						t.Errorf("element (%d,%d) loaded %d times", 4+i, 6+j, seen[want])
					}
					if got := tl.At(Coord{i, j}); got != want {
						t.Errorf("At(%d,%d) = %v, want %v", i, j, got, want)
					}
				}
			}
			if len(seen) != 32 {
				t.Errorf("loaded %d distinct elements, want 32", len(seen))
			}
		})
	}
}

func TestLoadOutsideViewIsZero(t *testing.T) {
	view, _ := NewTensorView(iotaMatrix(4, 4, RowMajor), Coord{4, 4}, RowMajor, Bulk)
	w, _ := NewWindow(view, Coord{4, 4}, Coord{2, 2}, Distribution{Lanes: 1})
	tl := w.Load()
	for i := range 4 {
		for j := range 4 {
			want := float32(0)
			if i < 2 && j < 2 {
				want = float32((2+i)*4 + 2 + j)
			}
			if got := tl.At(Coord{i, j}); got != want {
				t.Errorf("At(%d,%d) = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestStoreRoundTripThroughShuffle(t *testing.T) {
	rows, cols := 8, 6
	src, _ := NewTensorView(iotaMatrix(rows, cols, ColumnMajor), Coord{rows, cols}, ColumnMajor, Bulk)
	dst, _ := NewTensorView(make([]float32, rows*cols), Coord{rows, cols}, RowMajor, Scratch)
	dist := Distribution{Lanes: 2}
	in, _ := NewWindow(src, Coord{rows, cols}, Coord{}, dist)
	out, _ := NewWindow(dst, Coord{rows, cols}, Coord{}, dist)

	tl := in.Load()
	if tl.Order() != Dim0Fastest {
		t.Fatalf("column-major load order = %s, want %s", tl.Order(), Dim0Fastest)
	}
	if err := exceptions.Try(func() { out.Store(tl) }); err == nil {
		t.Fatal("Store of a dim0-fastest tile into row-major scratch should panic")
	}
	out.Store(Shuffle(tl))
	for i := range rows {
		for j := range cols {
			if got, want := dst.At(Coord{i, j}), float32(i*cols+j); got != want {
				t.Errorf("scratch(%d,%d) = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestNewWindowErrors(t *testing.T) {
	view, _ := NewTensorView(make([]float32, 16), Coord{4, 4}, RowMajor, Bulk)
	if _, err := NewWindow(view, Coord{3, 4}, Coord{}, Distribution{Lanes: 2}); !errors.Is(err, ErrWindowShape) {
		t.Errorf("3 rows over 2 lanes: err = %v, want ErrWindowShape", err)
	}
	if _, err := NewWindow(view, Coord{0, 4}, Coord{}, Distribution{Lanes: 1}); !errors.Is(err, ErrWindowShape) {
		t.Errorf("empty window: err = %v, want ErrWindowShape", err)
	}
	if _, err := NewBlockWindow(view, Coord{4, 2}, Coord{4, 4}, Coord{}, Distribution{Lanes: 1}); !errors.Is(err, ErrWindowShape) {
		t.Errorf("block mismatch: err = %v, want ErrWindowShape", err)
	}
	if _, err := NewBlockWindow(view, Coord{4, 4}, Coord{4, 4}, Coord{}, Distribution{Lanes: 4}); err != nil {
		t.Errorf("matching block window: %v", err)
	}
}

func TestNewTensorViewBounds(t *testing.T) {
	if _, err := NewTensorView(make([]float32, 15), Coord{4, 4}, RowMajor, Bulk); !errors.Is(err, ErrViewBounds) {
		t.Errorf("short data: err = %v, want ErrViewBounds", err)
	}
	if _, err := NewStridedView(make([]float32, 4*10), Coord{4, 4}, Coord{10, 1}, Bulk); err != nil {
		t.Errorf("padded leading dimension: %v", err)
	}
}
