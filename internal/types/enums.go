package types

// AnnotatorKind records what produced an annotation.
type AnnotatorKind string

const (
	AnnotatorHuman AnnotatorKind = "HUMAN"
	AnnotatorLLM   AnnotatorKind = "LLM"
	AnnotatorCode  AnnotatorKind = "CODE"
)

func (k AnnotatorKind) Valid() bool {
	switch k {
	case AnnotatorHuman, AnnotatorLLM, AnnotatorCode:
		return true
	}
	return false
}

// AnnotationSource records which surface wrote the annotation.
type AnnotationSource string

const (
	SourceAPI AnnotationSource = "API"
	SourceApp AnnotationSource = "APP"
)

func (s AnnotationSource) Valid() bool {
	return s == SourceAPI || s == SourceApp
}

// AuthMethod discriminates the single authentication method a user has.
type AuthMethod string

const (
	AuthLocal  AuthMethod = "LOCAL"
	AuthOAuth2 AuthMethod = "OAUTH2"
	AuthLDAP   AuthMethod = "LDAP"
)

// RevisionKind tags entries in the append-only dataset example log.
type RevisionKind string

const (
	RevisionCreate RevisionKind = "CREATE"
	RevisionPatch  RevisionKind = "PATCH"
	RevisionDelete RevisionKind = "DELETE"
)

// TemplateFormat of a prompt version. JSONPath was added after the others;
// downgrading past its introduction rejects rows that use it.
type TemplateFormat string

const (
	TemplateMustache TemplateFormat = "MUSTACHE"
	TemplateFString  TemplateFormat = "FSTRING"
	TemplateNone     TemplateFormat = "NONE"
	TemplateJSONPath TemplateFormat = "JSON_PATH"
)
