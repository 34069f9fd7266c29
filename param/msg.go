package param

// Subjects holds the NATS subjects for the remote parameter services and the
// change-event topic.
type Subjects struct {
	Pull  string
	List  string
	Get   string
	Set   string
	Event string
}

// DefaultSubjects builds the conventional subject layout under a namespace,
// e.g. "mavros" gives "mavros.param.pull".
func DefaultSubjects(namespace string) Subjects {
	if namespace == "" {
		namespace = "mavros"
	}
	return Subjects{
		Pull:  namespace + ".param.pull",
		List:  namespace + ".param.list_parameters",
		Get:   namespace + ".param.get_parameters",
		Set:   namespace + ".param.set_parameters",
		Event: namespace + ".param.event",
	}
}

// PullRequest asks the remote side to resynchronize its parameter table
type PullRequest struct {
	ForcePull bool `json:"force_pull"`
}

// PullResponse reports the outcome of a pull
type PullResponse struct {
	Success       bool   `json:"success"`
	ParamReceived uint32 `json:"param_received"`
	Error         string `json:"error,omitempty"`
}

// ListRequest asks for parameter names, optionally filtered by prefixes
type ListRequest struct {
	Prefixes []string `json:"prefixes"`
}

// ListResponse carries the matching parameter names, in remote order
type ListResponse struct {
	Names []string `json:"names"`
	Error string   `json:"error,omitempty"`
}

// GetRequest asks for the values of the named parameters
type GetRequest struct {
	Names []string `json:"names"`
}

// GetResponse carries one value per requested name, in request order
type GetResponse struct {
	Values []Value `json:"values"`
	Error  string  `json:"error,omitempty"`
}

// SetRequest carries parameters to write
type SetRequest struct {
	Parameters []Parameter `json:"parameters"`
}

// SetResult is the per-parameter outcome of a set request
type SetResult struct {
	Successful bool   `json:"successful"`
	Reason     string `json:"reason,omitempty"`
}

// SetResponse carries one result per submitted parameter, in request order
type SetResponse struct {
	Results []SetResult `json:"results"`
	Error   string      `json:"error,omitempty"`
}

// Event is a parameter change notification. It is source-agnostic: the
// change may come from this client's own set or from anywhere else.
type Event struct {
	ParamID string `json:"param_id"`
	Value   Value  `json:"value"`
}
