package ircd

// Numeric replies and errors from RFC 1459. See replies.go for the
// functions that build the actual messages.
const (
	rplWelcome  = "001"
	rplYourHost = "002"
	rplCreated  = "003"
	rplMyInfo   = "004"

	rplUserHost = "302"
	rplAway     = "301"
	rplUnaway   = "305"
	rplNowAway  = "306"

	rplWhoisUser     = "311"
	rplWhoisServer   = "312"
	rplWhoisOperator = "313"
	rplWhoisIdle     = "317"
	rplEndOfWhois    = "318"
	rplWhoisChannels = "319"

	rplListStart = "321"
	rplList      = "322"
	rplListEnd   = "323"

	rplNoTopic = "331"
	rplTopic   = "332"

	rplInviting = "341"

	rplVersion = "351"

	rplNamReply   = "353"
	rplEndOfNames = "366"

	rplBanList      = "367"
	rplEndOfBanList = "368"

	rplInfo      = "371"
	rplMOTD      = "372"
	rplEndOfInfo = "374"
	rplMOTDStart = "375"
	rplEndOfMOTD = "376"

	rplYoureOper = "381"
	rplRehashing = "382"

	rplTime = "391"

	rplUsersStart = "392"
	rplUsers      = "393"
	rplEndOfUsers = "394"
	rplNoUsers    = "395"

	rplTraceEnd    = "262"
	rplEndOfStats  = "219"
	rplEndOfWho    = "315"
	rplEndOfWhowas = "369"

	rplLUserClient   = "251"
	rplLUserOp       = "252"
	rplLUserUnknown  = "253"
	rplLUserChannels = "254"
	rplLUserMe       = "255"

	rplAdminMe   = "256"
	rplAdminLoc1 = "257"
	rplAdminLoc2 = "258"
	rplAdminMail = "259"

	errNoSuchNick       = "401"
	errNoSuchServer     = "402"
	errNoSuchChannel    = "403"
	errCannotSendToChan = "404"
	errTooManyChannels  = "405"
	errNoOrigin         = "409"
	errTooManyTargets   = "407"
	errNoRecipient      = "411"
	errNoTextToSend     = "412"
	errUnknownCommand   = "421"
	errNoMOTD           = "422"
	errFileError        = "424"
	errNoNicknameGiven  = "431"
	errErroneusNickname = "432"
	errNicknameInUse    = "433"
	errUserNotInChannel = "441"
	errNotOnChannel     = "442"
	errUserOnChannel    = "443"
	errNotRegistered    = "451"
	errNeedMoreParams   = "461"
	errAlreadyRegistred = "462"
	errPasswdMismatch   = "464"
	errChannelIsFull    = "471"
	errInviteOnlyChan   = "473"
	errBannedFromChan   = "474"
	errBadChannelKey    = "475"
	errNoPrivileges     = "481"
	errChanOPrivsNeeded = "482"
	errUsersDontMatch   = "502"
)
