package config

// Manifest represents the structure of the knit.yaml manifest of a compilation unit.
type Manifest struct {
	Unit         string      `yaml:"unit"`
	Module       string      `yaml:"module"`
	Include      []string    `yaml:"include"`
	Classes      []ClassDTO  `yaml:"classes"`
	Modules      []ModuleDTO `yaml:"modules"`
	Scopes       []ScopeDTO  `yaml:"scopes"`
	CallSites    []SiteDTO   `yaml:"sites"`
	Declarations []DeclDTO   `yaml:"declarations"`
}

// ModuleDTO represents a linked module. Included files hold exactly one module each.
type ModuleDTO struct {
	Name         string           `yaml:"name"`
	Version      string           `yaml:"version"`
	Predefined   bool             `yaml:"predefined"`
	Requires     []RequirementDTO `yaml:"requires"`
	Classes      []ClassDTO       `yaml:"classes"`
	Declarations []DeclDTO        `yaml:"declarations"`
}

// RequirementDTO represents a dependency on another module.
type RequirementDTO struct {
	Module     string `yaml:"module"`
	Constraint string `yaml:"constraint"`
}

// ClassDTO declares the type parameters and supertypes of a class.
type ClassDTO struct {
	Name       string   `yaml:"name"`
	Params     []string `yaml:"params"`
	Supertypes []string `yaml:"supertypes"`
}

// DeclDTO represents a declaration as reported by the front end.
type DeclDTO struct {
	Name        string         `yaml:"name"`
	Kind        string         `yaml:"kind"`
	Annotations []string       `yaml:"annotations"`
	Type        string         `yaml:"type"`
	TypeParams  []TypeParamDTO `yaml:"typeParams"`
	Params      []ParamDTO     `yaml:"params"`
	Scope       string         `yaml:"scope"`
	File        string         `yaml:"file"`
	Line        int            `yaml:"line"`
}

// TypeParamDTO represents a declared type parameter with its upper bounds.
type TypeParamDTO struct {
	Name   string   `yaml:"name"`
	Bounds []string `yaml:"bounds"`
}

// ParamDTO represents a value parameter.
type ParamDTO struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Default     bool     `yaml:"default"`
	Annotations []string `yaml:"annotations"`
}

// ScopeDTO represents a lexical scope. Substitution keys are written as owner#param.
type ScopeDTO struct {
	ID           string            `yaml:"id"`
	Parent       string            `yaml:"parent"`
	Substitution map[string]string `yaml:"substitution"`
}

// SiteDTO represents an injection call site.
type SiteDTO struct {
	ID    string `yaml:"id"`
	Type  string `yaml:"type"`
	Scope string `yaml:"scope"`
	File  string `yaml:"file"`
	Line  int    `yaml:"line"`
}
