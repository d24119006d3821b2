package parser

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// DateRange 从文件名推断出的结算周期
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Name 周期名称，如 "2024-01-01 ~ 2024-01-31"
func (r DateRange) Name() string {
	return fmt.Sprintf("%s ~ %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// BaseName 取路径中的文件名（兼容 / 与 \）
func BaseName(filePath string) string {
	p := strings.ReplaceAll(filePath, "\\", "/")
	return path.Base(p)
}

// ParseDateToken 解析日期片段：8 位按 YYYYMMDD，6 位按 YYMMDD（20YY）
func ParseDateToken(token string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	token = strings.TrimSpace(token)
	for _, r := range token {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}

	var layout string
	switch len(token) {
	case 8:
		layout = "20060102"
	case 6:
		layout = "060102"
	default:
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(layout, token, loc)
	if err != nil {
		return time.Time{}, false
	}
	// time 对两位年份按 69 为界，这里统一视为 20YY
	if len(token) == 6 && t.Year() < 2000 {
		t = t.AddDate(100, 0, 0)
	}
	return t, true
}

// ExtractPeriod 用规则中的正则匹配文件名，第一个捕获组为开始日期，
// 第二个捕获组（若能解析且不早于开始日期）为结束日期，否则结束日期等于开始日期。
// 正则无法编译、未匹配或日期无效时返回 false，由调用方回退为当前时间
func ExtractPeriod(fileName, pattern string, loc *time.Location) (DateRange, bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return DateRange{}, false
	}

	matches := re.FindStringSubmatch(BaseName(fileName))
	if len(matches) < 2 {
		return DateRange{}, false
	}

	start, ok := ParseDateToken(matches[1], loc)
	if !ok {
		return DateRange{}, false
	}

	end := start
	if len(matches) >= 3 {
		if t, ok := ParseDateToken(matches[2], loc); ok && !t.Before(start) {
			end = t
		}
	}

	return DateRange{Start: start, End: end}, true
}
