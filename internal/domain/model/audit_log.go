package model

import "time"

// 注文作成、ステータス変更、支払い更新、在庫更新など。
type AuditAction string

const (
	AuditActionCreateOrder         AuditAction = "CREATE_ORDER"
	AuditActionUpdateOrderStatus   AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionUpdateOrderItems    AuditAction = "UPDATE_ORDER_ITEMS"
	AuditActionUpdatePaymentStatus AuditAction = "UPDATE_PAYMENT_STATUS"
	AuditActionMarkOverdue         AuditAction = "MARK_OVERDUE"
	AuditActionUpdateStock         AuditAction = "UPDATE_STOCK"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourceUser    AuditResourceType = "user"
)

func (t AuditResourceType) IsValid() bool {
	switch t {
	case AuditResourceProduct, AuditResourceOrder, AuditResourceUser:
		return true
	}
	return false
}

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
// ActorUserID が 0 のときは匿名またはシステム（延滞スイーパー）による操作。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
