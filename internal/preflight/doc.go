// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths tunecache depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll and CheckSystemDeps at start-up and logs every
//     failure so an operator sees a broken install before the first request.
//   - The CLI "tunecache status" command uses the individual checks
//     (CheckDirectoryAccess, CheckPublisher) to display service health.
package preflight
