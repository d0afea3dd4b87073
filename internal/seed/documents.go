package seed

// SeedDocument is one sample knowledge-base file to ingest.
type SeedDocument struct {
	Filename string
	Content  string
}

// SeedDocuments returns sample markdown documents that give the retrieval
// tool something to find during local development.
func SeedDocuments() []SeedDocument {
	return []SeedDocument{
		{
			Filename: "onboarding.md",
			Content: `# Onboarding Guide

Welcome to the team. Your first week covers account setup, an architecture
walkthrough, and your first deploy.

## Accounts

Request access to the VPN, the staging database, and the shared dashboard
through the internal portal. Approvals usually land within a day.

## First deploy

Every new engineer ships a small change in week one. Pick an item labeled
"good first issue", open a pull request, and ask your onboarding buddy for
review.
`,
		},
		{
			Filename: "expense-policy.md",
			Content: `# Expense Policy

Expenses under 50 euros need no pre-approval. Anything above that requires
a manager sign-off before purchase.

## Travel

Book flights and hotels through the travel portal. Economy class for
flights under six hours. Meals while traveling are reimbursed up to 60
euros per day with receipts.

## Equipment

Laptops are refreshed every three years. Peripherals (monitor, keyboard,
headset) can be ordered once per year without approval.
`,
		},
		{
			Filename: "release-process.md",
			Content: `# Release Process

Releases ship every Tuesday and Thursday at 14:00 UTC.

## Cutting a release

1. Merge all approved pull requests before 12:00 UTC.
2. The release bot tags the build and runs the full test suite.
3. Staging soaks for one hour with automated smoke tests.
4. A release captain promotes staging to production.

## Rollbacks

Any engineer can trigger a rollback. Rollbacks revert to the previous tag
within five minutes; announce them in the operations channel.
`,
		},
	}
}
