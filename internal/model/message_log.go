package model

type MessageLog struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	IsContextUsed bool   `json:"is_context_used"`
	Ctime         int64  `json:"ctime"`
}
