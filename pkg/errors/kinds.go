package errors

// Catalog-facing error kinds. Every code listed here has a stable HTTP status
// and a wire "type" string; anything else surfaces as an internal failure.
var (
	BadRequest             = MustNewCode("catalog.bad_request")
	Validation             = MustNewCode("catalog.validation")
	AuthenticationFailed   = MustNewCode("catalog.authentication_failed")
	PermissionDenied       = MustNewCode("catalog.permission_denied")
	NoSuchNamespace        = MustNewCode("catalog.no_such_namespace")
	NoSuchTable            = MustNewCode("catalog.no_such_table")
	MethodNotAllowed       = MustNewCode("catalog.method_not_allowed")
	NotAcceptable          = MustNewCode("catalog.not_acceptable")
	NamespaceAlreadyExists = MustNewCode("catalog.namespace_already_exists")
	TableAlreadyExists     = MustNewCode("catalog.table_already_exists")
	CommitFailed           = MustNewCode("catalog.commit_failed")
	UnsupportedMediaType   = MustNewCode("catalog.unsupported_media_type")
	ServiceUnavailable     = MustNewCode("catalog.service_unavailable")
	GatewayTimeout         = MustNewCode("catalog.gateway_timeout")
)

type kind struct {
	status   int
	wireType string
}

var kinds = map[string]kind{
	BadRequest.String():             {400, "BadRequestException"},
	Validation.String():             {400, "ValidationException"},
	AuthenticationFailed.String():   {401, "AuthenticationFailedException"},
	PermissionDenied.String():       {403, "PermissionDeniedException"},
	NoSuchNamespace.String():        {404, "NoSuchNamespaceException"},
	NoSuchTable.String():            {404, "NoSuchTableException"},
	CommonNotFound.String():         {404, "NotFoundException"},
	MethodNotAllowed.String():       {405, "MethodNotAllowedException"},
	NotAcceptable.String():          {406, "NotAcceptableException"},
	NamespaceAlreadyExists.String(): {409, "NamespaceAlreadyExistsException"},
	TableAlreadyExists.String():     {409, "TableAlreadyExistsException"},
	CommitFailed.String():           {409, "CommitFailedException"},
	CommonConflict.String():         {409, "ConflictException"},
	UnsupportedMediaType.String():   {415, "UnsupportedMediaTypeException"},
	CommonInternal.String():         {500, "InternalServerErrorException"},
	ServiceUnavailable.String():     {503, "ServiceUnavailableException"},
	GatewayTimeout.String():         {504, "GatewayTimeoutException"},
}

// HTTPStatus returns the HTTP status for an error, 500 for anything unmapped
func HTTPStatus(err error) int {
	if e, ok := err.(*Error); ok {
		if k, ok := kinds[e.Code.String()]; ok {
			return k.status
		}
	}
	return 500
}

// WireType returns the wire "type" string for an error. Unmapped codes and
// plain Go errors report as internal failures with the dynamic type name.
func WireType(err error) string {
	if e, ok := err.(*Error); ok {
		if k, ok := kinds[e.Code.String()]; ok {
			return k.wireType
		}
	}
	return "InternalServerErrorException"
}

// IsKind reports whether err is an *Error carrying the given code
func IsKind(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code.Equals(code)
}
