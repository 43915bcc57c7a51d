package models

// QuotaStatus is the usage report returned to clients.
type QuotaStatus struct {
	Role Role  `json:"role"`
	Used int64 `json:"used"` // Bytes used across both namespaces
	Max  int64 `json:"max"`  // Configured per-user budget in bytes
}
