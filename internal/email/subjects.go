package email

const (
	subjectProposalFmt = "Your automation proposal for %s"
)
