package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/sim"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"
)

// dateLayouts 可接受的日期格式，按顺序尝试. 斜杠格式优先按美式 月/日/年 解析.
var dateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2 2006",
	time.RFC3339,
}

// ParseDate 按 dateLayouts 依次尝试解析.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// PriceInput 外部输入的一条价格记录.
type PriceInput struct {
	Date  string  `json:"date"  binding:"required"`
	Price float64 `json:"price"`
}

// SeriesFromInputs 解析日期、按日期排序并构建价格序列. 重复日期视为错误.
func SeriesFromInputs(in []PriceInput) (*finance.PriceSeries, error) {
	points := make([]finance.PricePoint, 0, len(in))
	var errs []error
	for i, p := range in {
		d, err := ParseDate(p.Date)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		points = append(points, finance.PricePoint{Date: d, Price: p.Price})
	}
	if len(errs) > 0 {
		return nil, xerrors.InvalidPriceSeries("%v", errors.Join(errs...))
	}
	slices.SortStableFunc(points, func(a, b finance.PricePoint) int { return a.Date.Compare(b.Date) })
	return finance.NewPriceSeries(points)
}

// ReadCSV 读取 "date,price" 两列 CSV，首行无法解析为日期时视为表头.
func ReadCSV(r io.Reader) (*finance.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, xerrors.InvalidPriceSeries("read csv: %v", err)
	}

	var (
		in   []PriceInput
		errs []error
	)
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if i == 0 {
			if _, err := ParseDate(strings.TrimPrefix(row[0], "\ufeff")); err != nil {
				continue
			}
			row[0] = strings.TrimPrefix(row[0], "\ufeff")
		}
		if len(row) != 2 {
			errs = append(errs, fmt.Errorf("row %d: expected 2 columns (date, price), got %d", i+1, len(row)))
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: price %q is not a number", i+1, row[1]))
			continue
		}
		in = append(in, PriceInput{Date: row[0], Price: price})
	}
	if len(errs) > 0 {
		return nil, xerrors.InvalidPriceSeries("%v", errors.Join(errs...))
	}
	return SeriesFromInputs(in)
}

// WritePathsCSV 以 CSV 导出完整价格矩阵：每行一个交易日，首列为日序号，之后每条路径一列.
func WritePathsCSV(w io.Writer, paths *sim.PricePathMatrix) error {
	if paths == nil {
		return xerrors.InvalidSimulationConfig("no paths to export")
	}
	cw := csv.NewWriter(w)

	row := make([]string, paths.Paths()+1)
	row[0] = "day"
	for j := range paths.Paths() {
		row[j+1] = "path_" + strconv.Itoa(j+1)
	}
	if err := cw.Write(row); err != nil {
		return err
	}

	for t := 0; t <= paths.Horizon(); t++ {
		row[0] = strconv.Itoa(t)
		for j, p := range paths.Day(t) {
			row[j+1] = strconv.FormatFloat(p, 'f', 6, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
