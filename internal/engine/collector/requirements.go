package collector

import (
	"github.com/Masterminds/semver/v3"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// checkRequirements validates the version constraints modules place on each other.
func checkRequirements(graph *domain.ModuleGraph) error {
	for m := range graph.Walk() {
		for _, req := range m.Requires {
			if req.Constraint == "" {
				continue
			}
			constraint, err := semver.NewConstraint(req.Constraint)
			if err != nil {
				return zerr.With(zerr.With(zerr.Wrap(err, domain.ErrInvalidConstraint.Error()),
					"module", m.Name), "constraint", req.Constraint)
			}

			dep, _ := graph.Module(req.Module)
			version, err := semver.NewVersion(dep.Version)
			if err != nil {
				return requirementError(m, req, dep.Version)
			}
			if !constraint.Check(version) {
				return requirementError(m, req, version.String())
			}
		}
	}
	return nil
}

func requirementError(m domain.Module, req domain.Requirement, version string) error {
	err := zerr.With(domain.ErrUnsatisfiedRequirement, "module", m.Name)
	err = zerr.With(err, "requires", req.Module)
	err = zerr.With(err, "constraint", req.Constraint)
	return zerr.With(err, "version", version)
}
