package dto

// CreateLeaveRequest files a leave request. TeacherID defaults to the caller's linked teacher.
type CreateLeaveRequest struct {
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"required,isodate"`
	LeaveType string `json:"leave_type" validate:"required,oneof=casual sick duty earned other"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

// LeaveDecisionRequest approves or denies a pending leave request.
type LeaveDecisionRequest struct {
	Status string  `json:"status" validate:"required,leave_status"`
	Note   *string `json:"note" validate:"omitempty,max=1000"`
}
