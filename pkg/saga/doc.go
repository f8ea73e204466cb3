// Package saga runs an ordered list of steps with compensating actions.
//
// Each [Step] pairs an action with an optional compensation that semantically
// undoes it. [Saga.Run] executes actions in order while tracking a cursor of
// completed steps. When an action fails, compensations of every completed step
// run in strict reverse order, starting from the cursor. A failing compensation
// is logged and does not stop the remaining compensations, and the caller always
// receives the original action error wrapped in a [*StepError].
//
//	s := saga.New("create_deployment", saga.WithLogger(log))
//	s.AddStep("insert_row", insertRow, deleteRow)
//	s.AddStep("create_hostname", createHostname, deleteHostname)
//
//	if err := s.Run(ctx); err != nil {
//		var stepErr *saga.StepError
//		if errors.As(err, &stepErr) {
//			log.Error("saga failed", "step", stepErr.Step)
//		}
//	}
//
// Compensations run on a context detached from the caller's cancellation so a
// cancelled request still rolls back what it created.
package saga
