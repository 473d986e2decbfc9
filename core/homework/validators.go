package homework

import "github.com/jferreira/maitrenotifie/core"

// DraftEdit contains the teacher's correction of the draft homework text.
type DraftEdit struct {
	HomeworkText string `json:"homeworkText" validate:"required"`
}

func (de *DraftEdit) Validate() error {
	de.HomeworkText = core.CleanString(de.HomeworkText)
	return core.Validate.Struct(de)
}
