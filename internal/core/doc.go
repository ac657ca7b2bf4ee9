// Package core provides the client-side workflow for the file cleaning demo.
//
// A user picks a CSV or XLSX file, chooses a processing mode and options,
// and submits the file to a remote cleaning service. This package holds the
// state machine behind that flow, independent of any UI or transport. It is
// used by the web UI and the CLI alike.
//
// # Components
//
//   - Option Store: [OptionStore] holds the [OptionSet] and active [Mode].
//     Setters take raw input and keep the prior value when it is invalid.
//   - Request Orchestrator: [Session.Submit] builds a [CleanRequest] from the
//     current mode, options and [SelectedFile], sends it through a
//     [Cleaner], and records the outcome in the [RequestState].
//   - Result Presenter: [Present] derives download, share and sample
//     references from a [Snapshot] without side effects.
//
// # Request lifecycle
//
//	Idle --submit--> InFlight --success--> Succeeded
//	                 InFlight --failure--> Failed
//	Succeeded, Failed --submit--> InFlight
//
// A submit while InFlight returns [ErrSubmitInFlight] and changes nothing.
// There is no terminal state.
//
// # Error Handling
//
// Errors fall into four kinds, see [Kind]:
//
//   - [ErrNoFileSelected]: no request is sent.
//   - [TransportError]: network failure or non-success status; the message
//     is the service's response text when present.
//   - [MalformedResponseError]: success status with an unexpected body.
//   - [ErrMisconfigured]: the service location is missing. Deployment issue.
//
// [MapError] turns any of them into a [UserMessage] with a support code.
// None of them touch the option set or the selected file.
package core
