package global

import (
	"github.com/tabia/api/internal/instance"
)

type Instances struct {
	Mongo      instance.Mongo
	Auth       instance.Authorizer
	Events     instance.Events
	Prometheus instance.Prometheus
}
