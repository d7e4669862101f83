package sim

// AdminStatusWriter allows publishers to receive admin server status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
