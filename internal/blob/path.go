package blob

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// SettlementPath 上传结算文件的存储路径：settlements/<branchId>/settlement_<unix毫秒>.<ext>
func SettlementPath(branchID, fileName string, now time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strings.ReplaceAll(fileName, "\\", "/"))), ".")
	if ext == "" {
		ext = "xlsx"
	}
	return fmt.Sprintf("settlements/%s/settlement_%d.%s", branchID, now.UnixMilli(), ext)
}
