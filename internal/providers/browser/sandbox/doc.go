/*
Package sandbox executes admitted participant code in disposable goja realms.

# Overview

Runner.Execute is the second barrier of the admission pipeline. Code that the
validator refuses never reaches a realm. Admitted code gets a fresh realm with:

  - A global object stripped to an allowlist of language intrinsics
  - Function constructors sealed on every function prototype
  - A wrapper frame rebinding common escape hatches to undefined
  - Strict mode for the submission body
  - A timeout on every entry into the realm (vm.Interrupt)

# Lifecycle

 1. Validate; refuse with *ValidationError
 2. Dispose any still-active session
 3. Create and harden the realm, install console, timers and stage
 4. Run the wrapped code synchronously
 5. Schedule teardown after the grace window (also on failure)
 6. Hand the session to the Attacher (output bridge)

Timers and animation frames registered by the code keep running on a
per-session loop until the teardown fires. The Teardown token can be
extended or cancelled by the host.

# Realm API

Besides the intrinsics, admitted code sees console.{log,info,debug,warn,error},
setTimeout/setInterval with function callbacks only, requestAnimationFrame,
and stage.createCanvas(width, height) returning a canvas whose 2D context
records draw calls into the render surface. canvas.setData(key, value) sets
an inert data-* attribute and records the change.

# Usage Example

	runner := sandbox.NewRunner(sandbox.DefaultConfig(), validator.Default(),
		sandbox.WithSink(sink),
		sandbox.WithAttacher(host),
	)

	session, err := runner.Execute(ctx, code)
	if err != nil {
		var verr *sandbox.ValidationError
		if errors.As(err, &verr) {
			// refused before execution
		}
	}
	session.Teardown().Extend(2 * time.Second)
*/
package sandbox
