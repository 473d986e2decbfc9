package roster

import "github.com/jferreira/maitrenotifie/core"

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name string `json:"name" validate:"required"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	return core.Validate.Struct(nc)
}

// NewStudent contains information needed to enrol a new Student in a Class.
type NewStudent struct {
	Name        string `json:"name" validate:"required"`
	ParentEmail string `json:"parentEmail" validate:"required,contains=@"`
	ParentPhone string `json:"parentPhone"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	return core.Validate.Struct(ns)
}
