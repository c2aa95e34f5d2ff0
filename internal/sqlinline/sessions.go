package sqlinline

const QInsertSession = `--sql 98e0f7c6-daef-485b-9896-334fc1437e94
insert into sessions (user_id, session_token, expires_at, created_at)
values ($1::bigint, $2::text, $3::timestamptz, now());
`

const QDeleteExpiredSessionsFor = `--sql b883c327-f4d3-4e94-aa08-7d29c7953ec8
delete from sessions
where user_id = $1::bigint and expires_at < now();
`

const QSelectSessionUser = `--sql 7bb0b46d-6ada-4125-b851-3fe1773fb30d
select u.id, u.email, u.name, u.tier, u.verified
from sessions s
join users u on u.id = s.user_id
where s.session_token = $1::text and s.expires_at > now()
limit 1;
`

const QDeleteSessionByToken = `--sql b74a7e62-2e53-4ea8-9923-7e39d2f193ea
delete from sessions
where session_token = $1::text;
`
