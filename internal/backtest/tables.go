package backtest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"microlab/internal/domain"
)

// tradesHeader is the trades table schema.
const tradesHeader = "ts_in,ts_out,day,mid_in,mid_out,spread_in,direction_score,expected_edge_ret,cost_ret,gross_ret,net_ret,side"

// dailyHeader is the daily PnL table schema.
const dailyHeader = "day,num_trades,gross_ret_sum,net_ret_sum,gross_ret_mean,net_ret_mean,cumulative_net_ret"

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// TradeWriter streams trades into a line-oriented text table.
type TradeWriter struct {
	f *os.File
	w *bufio.Writer
}

// NewTradeWriter creates the trades table at path and writes the header.
func NewTradeWriter(path string) (*TradeWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintln(w, tradesHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &TradeWriter{f: f, w: w}, nil
}

// Write appends one trade row.
func (tw *TradeWriter) Write(t domain.Trade) error {
	_, err := fmt.Fprintf(tw.w, "%d,%d,%d,%s,%s,%s,%s,%s,%s,%s,%s,%d\n",
		t.TSIn, t.TSOut, t.Day,
		ff(t.MidIn), ff(t.MidOut), ff(t.SpreadIn),
		ff(t.DirectionScore), ff(t.ExpectedEdgeRet), ff(t.CostRet),
		ff(t.GrossRet), ff(t.NetRet), t.Side,
	)
	return err
}

// Close flushes and closes the table.
func (tw *TradeWriter) Close() error {
	if err := tw.w.Flush(); err != nil {
		tw.f.Close()
		return err
	}
	return tw.f.Close()
}

// WriteDailyTable writes the daily PnL rows to path.
func WriteDailyTable(path string, rows []domain.DailyPnl) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	if _, err := fmt.Fprintln(w, dailyHeader); err != nil {
		f.Close()
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%d,%d,%s,%s,%s,%s,%s\n",
			r.Day, r.NumTrades,
			ff(r.GrossSum), ff(r.NetSum), ff(r.GrossMean), ff(r.NetMean),
			ff(r.CumulativeNet),
		); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
