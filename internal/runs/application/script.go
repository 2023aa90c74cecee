package application

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/runtracker/internal/runs/domain"
	"github.com/wyfcoding/runtracker/pkg/logger"
)

// ErrMalformedScript 脚本格式错误
var ErrMalformedScript = errors.New("malformed script")

const scriptSeriesID = "script"

// ScriptRunner 执行文本协议：
//
//	n m
//	v1 v2 ... vn      (配置了 Initial 时省略)
//	N a b k           区间 [a, b] 加 k
//	C a b             输出区间 [a, b] 最长非递减连续段长度
//
// 输入按空白切分，空行不影响解析。
type ScriptRunner struct {
	initial *int64
	logger  *slog.Logger
}

// NewScriptRunner initial 非 nil 时所有位置初始为该值。l 可以为 nil。
func NewScriptRunner(initial *int64, l *slog.Logger) *ScriptRunner {
	if l == nil {
		l = logger.Get()
	}
	return &ScriptRunner{initial: initial, logger: l}
}

// Run 读取 in 中的脚本并把每个 C 命令的结果写入 out。
// 出错时已经产生的输出仍会写出。
func (r *ScriptRunner) Run(ctx context.Context, in io.Reader, out io.Writer) (err error) {
	w := bufio.NewWriter(out)
	defer func() {
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = errors.Wrap(ferr, "flush output")
		}
	}()

	sc := newTokenScanner(in)
	n, err := sc.int64("n")
	if err != nil {
		return err
	}
	m, err := sc.int64("m")
	if err != nil {
		return err
	}
	if n <= 0 {
		return errors.Wrapf(domain.ErrConstruction, "n = %d", n)
	}
	if m < 0 {
		return errors.Wrapf(ErrMalformedScript, "negative command count %d", m)
	}

	series, err := r.buildSeries(sc, int(n))
	if err != nil {
		return err
	}

	var queries int
	for i := int64(1); i <= m; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "command #%d", i)
		}
		op, err := sc.next("command")
		if err != nil {
			return errors.Wrapf(err, "command #%d", i)
		}
		switch op {
		case "N":
			a, b, err := sc.window()
			if err != nil {
				return errors.Wrapf(err, "command #%d", i)
			}
			k, err := sc.int64("k")
			if err != nil {
				return errors.Wrapf(err, "command #%d", i)
			}
			if _, err := series.AdjustTicks(a, b, k); err != nil {
				return errors.Wrapf(err, "command #%d", i)
			}
		case "C":
			a, b, err := sc.window()
			if err != nil {
				return errors.Wrapf(err, "command #%d", i)
			}
			length, _, err := series.LongestRun(a, b)
			if err != nil {
				return errors.Wrapf(err, "command #%d", i)
			}
			if _, err := w.WriteString(strconv.Itoa(length) + "\n"); err != nil {
				return errors.Wrap(err, "write output")
			}
			queries++
		default:
			return errors.Wrapf(ErrMalformedScript, "command #%d: unknown command %q", i, op)
		}
	}

	logger.Attach(ctx, r.logger).DebugContext(ctx, "script finished", "n", n, "commands", m, "queries", queries)
	return nil
}

func (r *ScriptRunner) buildSeries(sc *tokenScanner, n int) (*domain.Series, error) {
	tick := decimal.NewFromInt(1)
	if r.initial != nil {
		return domain.NewUniformSeries(scriptSeriesID, tick, n, *r.initial)
	}
	values := make([]int64, n)
	for i := range values {
		v, err := sc.int64("initial value #" + strconv.Itoa(i+1))
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return domain.NewSeriesFromTicks(scriptSeriesID, tick, values)
}

type tokenScanner struct {
	sc *bufio.Scanner
}

func newTokenScanner(in io.Reader) *tokenScanner {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	return &tokenScanner{sc: sc}
}

func (t *tokenScanner) next(what string) (string, error) {
	if t.sc.Scan() {
		return t.sc.Text(), nil
	}
	if err := t.sc.Err(); err != nil {
		return "", errors.Wrap(err, "read script")
	}
	return "", errors.Wrapf(ErrMalformedScript, "unexpected end of input, want %s", what)
}

func (t *tokenScanner) int64(what string) (int64, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedScript, "%s: %q is not an integer", what, tok)
	}
	return v, nil
}

func (t *tokenScanner) window() (int, int, error) {
	a, err := t.int64("a")
	if err != nil {
		return 0, 0, err
	}
	b, err := t.int64("b")
	if err != nil {
		return 0, 0, err
	}
	return int(a), int(b), nil
}
