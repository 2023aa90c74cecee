// Package algos - 区间加 + 最长非递减连续段线段树（Run Segment Tree）
package algos

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidRange 区间不满足 1 <= a <= b <= n
	ErrInvalidRange = errors.New("invalid range")
	// ErrConstruction 构建参数非法：n <= 0 或初始值不足 n 个
	ErrConstruction = errors.New("invalid construction")
)

// runNode 线段树节点，覆盖一个连续区间 [l, r]
// pending 已计入本节点的边界值，但尚未下推到子节点。
type runNode struct {
	pending    int64
	leftValue  int64
	rightValue int64
	maxLen     int
	prefixLen  int
	suffixLen  int
}

// runSummary 查询窗口与某节点区间交集上的统计结果
// ok 为 false 表示交集为空；prefix/suffix 为 noRun 表示该端不在窗口真实边界上。
type runSummary struct {
	ok     bool
	prefix int
	suffix int
	best   int
}

const noRun = -1

// RunSegmentTree 线段树（懒标记）
// 支持区间加法与区间内最长非递减连续段查询，1-indexed，区间闭合。
// 时间复杂度：构建 O(n)，区间加 O(log n)，查询 O(log n)。
// 非并发安全：查询同样会下推懒标记，调用方需用一把互斥锁保护整棵树。
type RunSegmentTree struct {
	nodes []runNode
	n     int
}

// NewRunSegmentTree 用前 n 个初始值构建线段树
func NewRunSegmentTree(n int, values []int64) (*RunSegmentTree, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrConstruction, "n must be positive, got %d", n)
	}
	if len(values) < n {
		return nil, errors.Wrapf(ErrConstruction, "need %d initial values, got %d", n, len(values))
	}
	st := &RunSegmentTree{
		nodes: make([]runNode, 4*n),
		n:     n,
	}
	st.build(values, 1, 1, n)
	return st, nil
}

// NewUniformRunSegmentTree 所有位置初始值相同
func NewUniformRunSegmentTree(n int, value int64) (*RunSegmentTree, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrConstruction, "n must be positive, got %d", n)
	}
	values := make([]int64, n)
	for i := range values {
		values[i] = value
	}
	return NewRunSegmentTree(n, values)
}

// Len 元素个数
func (st *RunSegmentTree) Len() int {
	return st.n
}

// build 自底向上合并，不使用区间长度作为占位值
func (st *RunSegmentTree) build(values []int64, idx, l, r int) {
	if l == r {
		st.nodes[idx] = runNode{
			leftValue:  values[l-1],
			rightValue: values[l-1],
			maxLen:     1,
			prefixLen:  1,
			suffixLen:  1,
		}
		return
	}
	mid := (l + r) / 2
	st.build(values, 2*idx, l, mid)
	st.build(values, 2*idx+1, mid+1, r)
	st.pull(idx, l, r)
}

// AddRange 区间 [a, b] 每个位置加 delta
func (st *RunSegmentTree) AddRange(a, b int, delta int64) error {
	if err := st.checkRange(a, b); err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	st.add(1, 1, st.n, a, b, delta)
	return nil
}

// LongestNonDecreasing 查询区间 [a, b] 内最长非递减连续段长度
func (st *RunSegmentTree) LongestNonDecreasing(a, b int) (int, error) {
	if err := st.checkRange(a, b); err != nil {
		return 0, err
	}
	return st.query(1, 1, st.n, a, b).best, nil
}

// Value 查询单点当前值
func (st *RunSegmentTree) Value(i int) (int64, error) {
	if err := st.checkRange(i, i); err != nil {
		return 0, err
	}
	idx, l, r := 1, 1, st.n
	for l < r {
		st.pushDown(idx, l, r)
		mid := (l + r) / 2
		if i <= mid {
			idx, r = 2*idx, mid
		} else {
			idx, l = 2*idx+1, mid+1
		}
	}
	return st.nodes[idx].leftValue, nil
}

// Values 返回全部当前值（会把所有懒标记下推到叶子）
func (st *RunSegmentTree) Values() []int64 {
	out := make([]int64, 0, st.n)
	st.collect(1, 1, st.n, &out)
	return out
}

func (st *RunSegmentTree) collect(idx, l, r int, out *[]int64) {
	if l == r {
		*out = append(*out, st.nodes[idx].leftValue)
		return
	}
	st.pushDown(idx, l, r)
	mid := (l + r) / 2
	st.collect(2*idx, l, mid, out)
	st.collect(2*idx+1, mid+1, r, out)
}

func (st *RunSegmentTree) checkRange(a, b int) error {
	if a < 1 || b > st.n || a > b {
		return errors.Wrapf(ErrInvalidRange, "[%d, %d] not within [1, %d]", a, b, st.n)
	}
	return nil
}

// apply 把 delta 作用到整个节点；叶子没有子节点，不保留懒标记
func (st *RunSegmentTree) apply(idx int, leaf bool, delta int64) {
	node := &st.nodes[idx]
	node.leftValue += delta
	node.rightValue += delta
	if !leaf {
		node.pending += delta
	}
}

// pushDown 下推懒标记。整体平移不改变区间内部的相对顺序，只需调整边界值。
func (st *RunSegmentTree) pushDown(idx, l, r int) {
	delta := st.nodes[idx].pending
	if delta == 0 {
		return
	}
	mid := (l + r) / 2
	st.apply(2*idx, l == mid, delta)
	st.apply(2*idx+1, mid+1 == r, delta)
	st.nodes[idx].pending = 0
}

// pull 由两个子节点重新计算当前节点
func (st *RunSegmentTree) pull(idx, l, r int) {
	mid := (l + r) / 2
	left, right := &st.nodes[2*idx], &st.nodes[2*idx+1]
	node := &st.nodes[idx]

	node.leftValue = left.leftValue
	node.rightValue = right.rightValue
	seamOK := left.rightValue <= right.leftValue

	node.prefixLen = left.prefixLen
	if seamOK && left.prefixLen == mid-l+1 {
		node.prefixLen += right.prefixLen
	}

	node.suffixLen = right.suffixLen
	if seamOK && right.suffixLen == r-mid {
		node.suffixLen += left.suffixLen
	}

	node.maxLen = max(left.maxLen, right.maxLen)
	if seamOK {
		node.maxLen = max(node.maxLen, left.suffixLen+right.prefixLen)
	}
}

// add 递归区间加：先下推再递归，回溯时重新合并
func (st *RunSegmentTree) add(idx, l, r, a, b int, delta int64) {
	if b < l || r < a {
		return
	}
	if a <= l && r <= b {
		st.apply(idx, l == r, delta)
		return
	}
	st.pushDown(idx, l, r)
	mid := (l + r) / 2
	st.add(2*idx, l, mid, a, b, delta)
	st.add(2*idx+1, mid+1, r, a, b, delta)
	st.pull(idx, l, r)
}

// query 递归查询，结果按窗口局部返回，不写回节点
func (st *RunSegmentTree) query(idx, l, r, a, b int) runSummary {
	if b < l || r < a {
		return runSummary{}
	}
	if a <= l && r <= b {
		node := &st.nodes[idx]
		return runSummary{
			ok:     true,
			prefix: node.prefixLen,
			suffix: node.suffixLen,
			best:   node.maxLen,
		}
	}

	st.pushDown(idx, l, r)
	mid := (l + r) / 2
	left := st.query(2*idx, l, mid, a, b)
	right := st.query(2*idx+1, mid+1, r, a, b)

	// 只有一侧与窗口相交时，另一端的前缀/后缀不从本节点边界开始，标记为 noRun
	if !left.ok {
		right.prefix = noRun
		return right
	}
	if !right.ok {
		left.suffix = noRun
		return left
	}

	res := runSummary{
		ok:     true,
		prefix: left.prefix,
		suffix: right.suffix,
		best:   max(left.best, right.best),
	}
	// 子节点边界值反映真实相邻元素，与查询窗口无关
	if st.nodes[2*idx].rightValue <= st.nodes[2*idx+1].leftValue {
		res.best = max(res.best, left.suffix+right.prefix)
		if left.prefix == mid-l+1 {
			res.prefix += right.prefix
		}
		if right.suffix == r-mid {
			res.suffix += left.suffix
		}
	}
	return res
}
