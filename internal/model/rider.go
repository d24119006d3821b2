package model

// Rider 骑手目录条目
type Rider struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	BranchID  string `json:"branchId"`
	RiderCode string `json:"riderCode"` // 平台侧骑手编号
	Name      string `json:"name"`
	Status    string `json:"status"`
}

// RiderRef 骑手引用
type RiderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LookupBy 骑手查找方式
type LookupBy string

const (
	LookupCode LookupBy = "code"
	LookupID   LookupBy = "id"
	LookupName LookupBy = "name"
)

// RiderLookup 单次骑手查找条件
type RiderLookup struct {
	By    LookupBy
	Value string
}

// Role 调用方角色
type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleCompanyAdmin  Role = "company_admin"
	RoleBranchManager Role = "branch_manager"
	RoleRider         Role = "rider"
)

// Caller 当前调用方
type Caller struct {
	Role      Role   `json:"role"`
	CompanyID string `json:"companyId"`
	BranchID  string `json:"branchId,omitempty"`
}
