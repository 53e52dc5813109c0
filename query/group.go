// Copyright (C) 2024 NoWDB Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package query

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/google/btree"
	"github.com/nowdb/nowdb/blist"
	"github.com/nowdb/nowdb/plan"
	"github.com/nowdb/nowdb/sql"
)

// arenaValuesPerBlock is how many float64 samples one blist.Block
// holds, sized so a block stays a whole PageSize-ish chunk without
// pulling in the model package just for the constant.
const arenaValuesPerBlock = 1024

// fun is one running aggregate, grounded on the original group/fun
// vtable's Zero/One/Many/Tree evaluation classes: count is a bare
// counter, sum/max/min/avg/spread fold one value at a time, and
// median/stddev/integral need the whole sample set buffered before
// they can produce a result.
type fun struct {
	spec plan.AggregateSpec

	count int64
	sum   float64
	max   float64
	min   float64
	seen  bool

	// buffered functions (median, stddev, integral)
	arena  *blist.Arena
	blocks blist.List
	cur    *blist.Block
	curLen int
	n      int

	// mode: a count tree keyed by value, grounded on the original's
	// NOWDB_FUN_TREE evaluation class.
	modeTree *btree.BTreeG[modeEntry]
}

type modeEntry struct {
	value float64
	count int64
}

func modeLess(a, b modeEntry) bool { return a.value < b.value }

func newFun(spec plan.AggregateSpec) *fun {
	f := &fun{spec: spec, min: math.Inf(1), max: math.Inf(-1)}
	if isBuffered(spec.Func) {
		f.arena = blist.NewArena(arenaValuesPerBlock * 8)
	}
	if spec.Func == sFunMode {
		f.modeTree = btree.NewG(32, modeLess)
	}
	return f
}

// sFunMode, sFunMedian, sFunStddev, sFunIntegral, sFunSpread extend
// sql.SType with aggregate kinds the grammar has no keyword for: the
// parser does not accept mode/median/stddev/integral/spread calls, so
// these kinds reach Group only from callers constructing
// plan.AggregateSpec directly; they live here rather than in package
// sql because only Group interprets them.
const (
	sFunMedian sql.SType = 100 + iota
	sFunStddev
	sFunIntegral
	sFunSpread
	sFunMode
)

func isBuffered(f sql.SType) bool {
	return f == sFunMedian || f == sFunStddev || f == sFunIntegral
}

// Add folds one numeric value into the running aggregate.
func (f *fun) Add(v float64) {
	f.seen = true
	f.count++
	switch f.spec.Func {
	case sql.SCount:
		// nothing else to do; count is tracked unconditionally above
	case sql.SSum, sql.SAvg:
		f.sum += v
	case sql.SMax:
		if v > f.max {
			f.max = v
		}
	case sql.SMin:
		if v < f.min {
			f.min = v
		}
	case sFunSpread:
		if v > f.max {
			f.max = v
		}
		if v < f.min {
			f.min = v
		}
	case sFunMedian, sFunStddev, sFunIntegral:
		f.sum += v
		f.pushBuffered(v)
	case sFunMode:
		f.bumpMode(v)
	}
}

func (f *fun) pushBuffered(v float64) {
	if f.cur == nil || f.curLen == arenaValuesPerBlock {
		if f.cur != nil {
			f.arena.Give(&f.blocks, f.cur)
		}
		f.cur = f.arena.Get()
		f.curLen = 0
	}
	binary.LittleEndian.PutUint64(f.cur.Buf[f.curLen*8:f.curLen*8+8], math.Float64bits(v))
	f.curLen++
	f.n++
}

func (f *fun) bumpMode(v float64) {
	e, ok := f.modeTree.Get(modeEntry{value: v})
	if !ok {
		e = modeEntry{value: v}
	}
	e.count++
	f.modeTree.ReplaceOrInsert(e)
}

// buffered returns every value Add buffered, in insertion order — the
// arena's block list plus whatever is still sitting in the open block.
func (f *fun) buffered() []float64 {
	var out []float64
	if f.cur != nil {
		f.arena.Give(&f.blocks, f.cur)
		f.cur = nil
	}
	// blist.List is a singly-linked push-to-front chain: walking it
	// via repeated Take reverses insertion order, so collect then flip.
	var chunks [][]byte
	for {
		b := f.arena.Take(&f.blocks)
		if b == nil {
			break
		}
		chunks = append(chunks, b.Buf)
		f.arena.Free(b)
	}
	for i := len(chunks) - 1; i >= 0; i-- {
		buf := chunks[i]
		for off := 0; off+8 <= len(buf) && len(out) < f.n; off += 8 {
			out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(buf[off:off+8])))
		}
	}
	return out
}

// Result computes the final aggregate value. ok is false when the
// aggregate has no defined value because no sample was added (max, min,
// avg, spread, median, stddev, integral, mode); count and sum always
// report ok.
func (f *fun) Result() (float64, bool) {
	switch f.spec.Func {
	case sql.SCount:
		return float64(f.count), true
	case sql.SSum:
		return f.sum, true
	case sql.SMax:
		return f.max, f.seen
	case sql.SMin:
		return f.min, f.seen
	case sql.SAvg:
		if f.count == 0 {
			return 0, false
		}
		return f.sum / float64(f.count), true
	case sFunSpread:
		return f.max - f.min, f.seen
	case sFunMedian:
		vals := f.buffered()
		if len(vals) == 0 {
			return 0, false
		}
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			return vals[mid], true
		}
		return (vals[mid-1] + vals[mid]) / 2, true
	case sFunStddev:
		vals := f.buffered()
		if len(vals) == 0 {
			return 0, false
		}
		mean := f.sum / float64(len(vals))
		var acc float64
		for _, v := range vals {
			d := v - mean
			acc += d * d
		}
		return math.Sqrt(acc / float64(len(vals))), true
	case sFunIntegral:
		// trapezoid rule over buffered samples in arrival order,
		// treating each sample as one unit apart on the x axis.
		vals := f.buffered()
		if len(vals) < 2 {
			return 0, len(vals) == 1
		}
		var acc float64
		for i := 1; i < len(vals); i++ {
			acc += (vals[i-1] + vals[i]) / 2
		}
		return acc, true
	case sFunMode:
		var best modeEntry
		var haveBest bool
		f.modeTree.Ascend(func(e modeEntry) bool {
			if !haveBest || e.count > best.count {
				best, haveBest = e, true
			}
			return true
		})
		return best.value, haveBest
	default:
		return 0, false
	}
}

// Group runs every aggregate in plan.GroupPlan order over a stream of
// projected float64 column values, one matching record at a time, and
// produces the single summary row spec §4.10 Group describes.
type Group struct {
	funs []*fun
}

// NewGroup builds a group evaluator from plan.
func NewGroup(gp plan.GroupPlan) *Group {
	g := &Group{funs: make([]*fun, len(gp.Aggregates))}
	for i, spec := range gp.Aggregates {
		g.funs[i] = newFun(spec)
	}
	return g
}

// Add feeds one matching record's column values (in the same order as
// the group's aggregates; a count(*) slot's value is ignored) into
// every aggregate.
func (g *Group) Add(values []float64) {
	for i, f := range g.funs {
		v := 0.0
		if i < len(values) {
			v = values[i]
		}
		f.Add(v)
	}
}

// Results returns the final value of every aggregate, in order.
func (g *Group) Results() []float64 {
	out := make([]float64, len(g.funs))
	for i, f := range g.funs {
		v, _ := f.Result()
		out[i] = v
	}
	return out
}
